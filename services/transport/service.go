package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

var (
	ErrInvalidRecipient = errors.New("invalid recipient address")
)

// senderProvider is one transactional sending backend. Send returns the
// provider-assigned message ID when the provider reports one.
type senderProvider interface {
	Name() enum.MailProvider
	Send(ctx context.Context, req interfaces.SendRequest) (string, error)
	Ready() error
}

type mailTransport struct {
	cfg      *config.MailConfig
	log      logger.Logger
	provider senderProvider
}

// NewMailTransport selects the sending backend from configuration.
func NewMailTransport(cfg *config.MailConfig, log logger.Logger) interfaces.MailTransport {
	t := &mailTransport{
		cfg: cfg,
		log: log,
	}

	switch enum.MailProvider(strings.ToLower(cfg.Provider)) {
	case enum.MailProviderResend:
		t.provider = newResendProvider(cfg)
	case enum.MailProviderSMTP:
		t.provider = newSMTPProvider(cfg)
	default:
		t.provider = newSendgridProvider(cfg)
	}
	log.Infof("mail transport using %s backend", t.provider.Name())

	return t
}

func (t *mailTransport) SendOne(ctx context.Context, req interfaces.SendRequest) interfaces.SendResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailTransport.SendOne")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("provider", t.provider.Name().String())
	span.LogKV("to", req.To)

	result := interfaces.SendResult{Provider: t.provider.Name()}

	validation := mailvalidate.ValidateEmailSyntax(req.To)
	if !validation.IsValid {
		result.Error = ErrInvalidRecipient.Error()
		tracing.TraceErr(span, ErrInvalidRecipient)
		return result
	}
	req.To = validation.CleanEmail

	if err := t.provider.Ready(); err != nil {
		result.Error = err.Error()
		tracing.TraceErr(span, err)
		return result
	}

	t.applyDefaults(&req)

	sendCtx, cancel := context.WithTimeout(ctx, t.cfg.SendTimeout)
	defer cancel()

	messageID, err := t.provider.Send(sendCtx, req)
	if err != nil {
		result.Error = err.Error()
		tracing.TraceErr(span, err)
		t.log.Warnf("send to %s via %s failed: %v", req.To, t.provider.Name(), err)
		return result
	}

	if messageID == "" {
		messageID = utils.GenerateNanoIDWithPrefix("msg", 16)
	}
	result.Success = true
	result.MessageID = messageID
	span.SetTag("message.id", messageID)
	return result
}

func (t *mailTransport) applyDefaults(req *interfaces.SendRequest) {
	if req.FromEmail == "" {
		req.FromEmail = t.cfg.FromEmail
	}
	if req.FromName == "" {
		req.FromName = t.cfg.FromName
	}
	if req.ContentType == "" {
		req.ContentType = "text/plain"
	}
}

func (t *mailTransport) HealthCheck(ctx context.Context) interfaces.CollaboratorHealth {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailTransport.HealthCheck")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	health := interfaces.CollaboratorHealth{CheckedAt: utils.Now()}

	if err := t.provider.Ready(); err != nil {
		tracing.TraceErr(span, err)
		health.Detail = err.Error()
		return health
	}

	health.Healthy = true
	health.Detail = fmt.Sprintf("%s configured", t.provider.Name())
	return health
}
