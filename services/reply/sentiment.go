package reply

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/tracing"
)

var (
	positiveWords = []string{"thank", "great", "excellent", "love", "appreciate", "good"}
	negativeWords = []string{"problem", "issue", "error", "bug", "complaint", "wrong", "bad"}
	urgentWords   = []string{"urgent", "asap", "immediately", "emergency", "critical"}
)

// Analyze classifies sentiment and urgency of an inbound message. When an
// AI backend is configured it is asked first; on any failure or malformed
// output the keyword heuristic takes over, so the caller always gets a
// classification.
func (s *replyService) Analyze(ctx context.Context, body string) interfaces.Analysis {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReplyService.Analyze")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.provider != nil {
		if analysis, ok := s.analyzeWithAI(ctx, body); ok {
			return analysis
		}
	}
	return analyzeWithKeywords(body)
}

func (s *replyService) analyzeWithAI(ctx context.Context, body string) (interfaces.Analysis, bool) {
	prompt := "Analyze the sentiment and urgency of the following email. " +
		"Respond with ONLY a JSON object of the form " +
		`{"sentiment":"positive|negative|neutral","urgency":"low|medium|high","confidence":0.0,"keywords":[]}` +
		"\n\nEmail:\n" + body

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	raw, err := s.provider.Generate(callCtx, prompt)
	if err != nil {
		s.log.Warnf("AI sentiment analysis failed, using keyword heuristic: %v", err)
		return interfaces.Analysis{}, false
	}

	// Models sometimes wrap JSON in markdown fences.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var analysis interfaces.Analysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &analysis); err != nil {
		return interfaces.Analysis{}, false
	}
	if !validSentiment(analysis.Sentiment) || !validUrgency(analysis.Urgency) {
		return interfaces.Analysis{}, false
	}
	return analysis, true
}

func analyzeWithKeywords(body string) interfaces.Analysis {
	content := strings.ToLower(body)

	var positive, negative, urgent int
	var keywords []string
	for _, w := range positiveWords {
		if strings.Contains(content, w) {
			positive++
			keywords = append(keywords, w)
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(content, w) {
			negative++
			keywords = append(keywords, w)
		}
	}
	for _, w := range urgentWords {
		if strings.Contains(content, w) {
			urgent++
			keywords = append(keywords, w)
		}
	}

	sentiment := enum.SentimentNeutral
	if positive > negative {
		sentiment = enum.SentimentPositive
	} else if negative > positive {
		sentiment = enum.SentimentNegative
	}

	urgency := enum.UrgencyMedium
	if urgent > 0 || len(body) > 500 {
		urgency = enum.UrgencyHigh
	} else if negative == 0 {
		urgency = enum.UrgencyLow
	}

	return interfaces.Analysis{
		Sentiment:  sentiment,
		Urgency:    urgency,
		Confidence: 0.6,
		Keywords:   keywords,
	}
}

func validSentiment(s enum.Sentiment) bool {
	switch s {
	case enum.SentimentPositive, enum.SentimentNegative, enum.SentimentNeutral:
		return true
	}
	return false
}

func validUrgency(u enum.Urgency) bool {
	switch u {
	case enum.UrgencyLow, enum.UrgencyMedium, enum.UrgencyHigh:
		return true
	}
	return false
}
