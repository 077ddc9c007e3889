package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

type replyService struct {
	provider interfaces.AIProvider
	cfg      *config.AIConfig
	mailCfg  *config.MailConfig
	log      logger.Logger
}

// NewReplyService builds the reply generator. The AI provider is selected by
// configuration at construction; with no provider configured the service
// still functions through the template fallback.
func NewReplyService(cfg *config.AIConfig, mailCfg *config.MailConfig, log logger.Logger) interfaces.ReplyGenerator {
	s := &replyService{
		cfg:     cfg,
		mailCfg: mailCfg,
		log:     log,
	}

	switch enum.AIProvider(strings.ToLower(cfg.Provider)) {
	case enum.AIProviderOpenAI:
		if cfg.OpenAIAPIKey != "" {
			s.provider = newOpenAIProvider(cfg)
			log.Info("reply generator using openai backend")
		}
	case enum.AIProviderGemini:
		if cfg.GeminiAPIKey != "" {
			s.provider = newGeminiProvider(cfg)
			log.Info("reply generator using gemini backend")
		}
	}
	if s.provider == nil {
		log.Info("no AI backend configured, reply generator in template mode")
	}

	return s
}

func (s *replyService) GenerateReply(ctx context.Context, subject, body, sender string, replyContext map[string]string) (string, enum.ReplyType, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReplyService.GenerateReply")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("sender", sender)

	if s.provider == nil {
		return s.templateReply(subject, body, sender), enum.ReplyTypeAuto, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	raw, err := s.provider.Generate(callCtx, s.buildPrompt(subject, body, sender, replyContext))
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("AI reply generation failed, using template fallback: %v", err)
		}
		return s.templateReply(subject, body, sender), enum.ReplyTypeAuto, nil
	}

	reply := s.normalizeReply(raw)
	span.LogFields(tracingLog.Int("reply.length", len(reply)))
	return reply, enum.ReplyTypeAI, nil
}

func (s *replyService) buildPrompt(subject, body, sender string, replyContext map[string]string) string {
	companyName := s.mailCfg.FromName
	if v, ok := replyContext["company_name"]; ok && v != "" {
		companyName = v
	}

	contextBlock := "No additional context provided."
	if len(replyContext) > 0 {
		if encoded, err := json.MarshalIndent(replyContext, "", "  "); err == nil {
			contextBlock = string(encoded)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI assistant helping to generate professional email replies for %s.\n\n", companyName)
	b.WriteString("GUIDELINES:\n")
	b.WriteString("- Be professional, helpful, and concise\n")
	b.WriteString("- Address the sender's concerns directly\n")
	b.WriteString("- Use a friendly but professional tone\n")
	b.WriteString("- Keep the response under 200 words\n")
	b.WriteString("- Do not include any HTML tags or special formatting\n")
	b.WriteString("- End with an appropriate professional closing\n\n")
	b.WriteString("EMAIL TO RESPOND TO:\n")
	fmt.Fprintf(&b, "From: %s\nSubject: %s\n\nBody:\n%s\n\n", sender, subject, body)
	fmt.Fprintf(&b, "CONTEXT:\n%s\n\n", contextBlock)
	b.WriteString("Please generate a professional email reply that addresses the sender's message appropriately.\n")
	b.WriteString("Do not include \"AI Generated Reply:\" or any similar prefixes in your response.")

	return b.String()
}

// normalizeReply post-processes raw model output. Providers are unreliable
// about format compliance, so this step runs regardless of backend.
func (s *replyService) normalizeReply(raw string) string {
	reply := strings.TrimSpace(raw)

	prefixes := []string{
		"AI Generated Reply:",
		"Reply:",
		"Response:",
		"Dear Sir/Madam",
		"Dear Customer",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(reply, prefix) {
			reply = strings.TrimSpace(strings.TrimPrefix(reply, prefix))
		}
	}

	// Collapse blank lines
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	reply = strings.Join(lines, "\n")

	if !hasGreeting(reply) {
		reply = fmt.Sprintf("Dear %s User,\n\n%s", s.mailCfg.FromName, reply)
	}
	if !hasClosing(reply) {
		reply += fmt.Sprintf("\n\nBest regards,\n%s Team", s.mailCfg.FromName)
	}

	return reply
}

func hasGreeting(reply string) bool {
	head := strings.ToLower(reply)
	if len(head) > 50 {
		head = head[:50]
	}
	for _, greeting := range []string{"dear", "hello", "hi", "thank you"} {
		if strings.Contains(head, greeting) {
			return true
		}
	}
	return false
}

func hasClosing(reply string) bool {
	tail := strings.ToLower(reply)
	if len(tail) > 100 {
		tail = tail[len(tail)-100:]
	}
	for _, phrase := range []string{"best regards", "sincerely", "thank you", "regards"} {
		if strings.Contains(tail, phrase) {
			return true
		}
	}
	return false
}

func (s *replyService) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReplyService.HealthCheck")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	health := interfaces.CollaboratorHealth{CheckedAt: utils.Now()}

	if s.provider == nil {
		// Template mode needs no upstream; it is always usable.
		health.Healthy = true
		health.Detail = "template mode, no AI backend configured"
		return health
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := s.provider.Generate(probeCtx, "Test message - please respond with 'OK'")
	if err != nil {
		tracing.TraceErr(span, err)
		health.Detail = err.Error()
		return health
	}

	health.Healthy = true
	health.Detail = string(s.provider.Name())
	return health
}
