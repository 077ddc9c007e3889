package reply

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (p *fakeProvider) Name() enum.AIProvider {
	return enum.AIProviderOpenAI
}

func (p *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.response, p.err
}

func newTestService(provider *fakeProvider) *replyService {
	s := &replyService{
		cfg:     &config.AIConfig{Provider: "none", RequestTimeout: 1000000000},
		mailCfg: &config.MailConfig{FromName: "ReplyStack"},
		log:     getLogger(),
	}
	if provider != nil {
		s.provider = provider
	}
	return s
}

func TestGenerateReply_TemplateMode(t *testing.T) {
	s := newTestService(nil)

	text, replyType, err := s.GenerateReply(context.Background(), "Need help with a bug", "it crashes", "user@example.com", nil)
	assert.NoError(t, err)
	assert.Equal(t, enum.ReplyTypeAuto, replyType)
	assert.Contains(t, text, "support team")
	assert.Contains(t, text, "TK-")
}

func TestGenerateReply_AIMode(t *testing.T) {
	provider := &fakeProvider{response: "Thanks for reaching out. We will look into it.\n\nBest regards,\nThe Team"}
	s := newTestService(provider)

	text, replyType, err := s.GenerateReply(context.Background(), "Question", "How does it work?", "user@example.com", nil)
	assert.NoError(t, err)
	assert.Equal(t, enum.ReplyTypeAI, replyType)
	assert.Contains(t, text, "Thanks for reaching out")
	assert.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "How does it work?")
}

func TestGenerateReply_AIFailureFallsBackToTemplate(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	s := newTestService(provider)

	text, replyType, err := s.GenerateReply(context.Background(), "Pricing question", "how much?", "user@example.com", nil)
	assert.NoError(t, err)
	assert.Equal(t, enum.ReplyTypeAuto, replyType)
	assert.Contains(t, text, "Sales Team")
}

func TestNormalizeReply_StripsPrefixes(t *testing.T) {
	s := newTestService(nil)

	reply := s.normalizeReply("Reply: Hello there, thank you for writing. Best regards, Team")
	assert.False(t, strings.HasPrefix(reply, "Reply:"))
	assert.Contains(t, reply, "Hello there")
}

func TestNormalizeReply_AddsGreetingAndClosing(t *testing.T) {
	s := newTestService(nil)

	reply := s.normalizeReply("We received your message and will respond shortly.")
	assert.True(t, strings.HasPrefix(reply, "Dear ReplyStack User,"))
	assert.Contains(t, reply, "Best regards,\nReplyStack Team")
}

func TestNormalizeReply_KeepsExistingGreeting(t *testing.T) {
	s := newTestService(nil)

	reply := s.normalizeReply("Hello Jane,\nall set.\n\nSincerely,\nSupport")
	assert.False(t, strings.HasPrefix(reply, "Dear ReplyStack User,"))
	assert.NotContains(t, reply, "Best regards,\nReplyStack Team")
}

func TestTemplateReply_Categories(t *testing.T) {
	s := newTestService(nil)

	support := s.templateReply("Bug report", "there is an error in the export", "a@b.com")
	assert.Contains(t, support, "Support Team")

	sales := s.templateReply("Pricing", "send me a quote please", "a@b.com")
	assert.Contains(t, sales, "Sales Team")

	generic := s.templateReply("Hello", "just saying hi", "a@b.com")
	assert.NotContains(t, generic, "Support Team")
	assert.NotContains(t, generic, "Sales Team")
}

func TestTicketReference_Deterministic(t *testing.T) {
	first := ticketReference("Broken export", "user@example.com")
	second := ticketReference("Broken export", "user@example.com")
	other := ticketReference("Broken export", "other@example.com")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Regexp(t, `^TK-\d{5}$`, first)
}

func TestTicketReference_ThreadPrefixesShareTicket(t *testing.T) {
	original := ticketReference("Broken export", "user@example.com")

	assert.Equal(t, original, ticketReference("Re: Broken export", "user@example.com"))
	assert.Equal(t, original, ticketReference("Fwd: Re: Broken export", "user@example.com"))
}

func TestAnalyze_KeywordHeuristic(t *testing.T) {
	s := newTestService(nil)
	ctx := context.Background()

	positive := s.Analyze(ctx, "Thank you, this is a great product, we love it")
	assert.Equal(t, enum.SentimentPositive, positive.Sentiment)
	assert.Equal(t, 0.6, positive.Confidence)

	negative := s.Analyze(ctx, "There is a problem, the export has a bug")
	assert.Equal(t, enum.SentimentNegative, negative.Sentiment)

	urgent := s.Analyze(ctx, "This is urgent, please fix asap")
	assert.Equal(t, enum.UrgencyHigh, urgent.Urgency)

	longBody := s.Analyze(ctx, strings.Repeat("details ", 100))
	assert.Equal(t, enum.UrgencyHigh, longBody.Urgency)

	calm := s.Analyze(ctx, "just checking in")
	assert.Equal(t, enum.SentimentNeutral, calm.Sentiment)
	assert.Equal(t, enum.UrgencyLow, calm.Urgency)
}

func TestAnalyze_AIResponseParsed(t *testing.T) {
	provider := &fakeProvider{response: "```json\n{\"sentiment\":\"negative\",\"urgency\":\"high\",\"confidence\":0.9,\"keywords\":[\"outage\"]}\n```"}
	s := newTestService(provider)

	analysis := s.Analyze(context.Background(), "production is down")
	assert.Equal(t, enum.SentimentNegative, analysis.Sentiment)
	assert.Equal(t, enum.UrgencyHigh, analysis.Urgency)
	assert.Equal(t, 0.9, analysis.Confidence)
}

func TestAnalyze_MalformedAIFallsBack(t *testing.T) {
	provider := &fakeProvider{response: "the sentiment is bad"}
	s := newTestService(provider)

	analysis := s.Analyze(context.Background(), "there is an issue")
	assert.Equal(t, enum.SentimentNegative, analysis.Sentiment)
	assert.Equal(t, 0.6, analysis.Confidence)
}
