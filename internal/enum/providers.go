package enum

// AIProvider identifies the text-generation backend used for reply drafting.
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderGemini AIProvider = "gemini"
	AIProviderNone   AIProvider = "none"
)

func (t AIProvider) String() string {
	return string(t)
}

// MailProvider identifies the transactional sending backend.
type MailProvider string

const (
	MailProviderSendgrid MailProvider = "sendgrid"
	MailProviderResend   MailProvider = "resend"
	MailProviderSMTP     MailProvider = "smtp"
)

func (t MailProvider) String() string {
	return string(t)
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

func (t Sentiment) String() string {
	return string(t)
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (t Urgency) String() string {
	return string(t)
}
