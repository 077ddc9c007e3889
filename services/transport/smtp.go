package transport

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
)

type smtpProvider struct {
	host     string
	port     int
	username string
	password string
}

func newSMTPProvider(cfg *config.MailConfig) *smtpProvider {
	return &smtpProvider{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (p *smtpProvider) Name() enum.MailProvider {
	return enum.MailProviderSMTP
}

func (p *smtpProvider) Ready() error {
	if p.host == "" {
		return errors.New("smtp host is not configured")
	}
	return nil
}

func (p *smtpProvider) Send(ctx context.Context, req interfaces.SendRequest) (string, error) {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", req.FromEmail, req.FromName)
	m.SetHeader("To", req.To)
	m.SetHeader("Subject", req.Subject)
	if req.ReplyTo != "" {
		m.SetHeader("Reply-To", req.ReplyTo)
	}
	m.SetBody(req.ContentType, req.Body)

	dialer := gomail.NewDialer(p.host, p.port, p.username, p.password)

	// gomail has no context support, so honor cancellation around the
	// blocking dial-and-send.
	errCh := make(chan error, 1)
	go func() {
		errCh <- dialer.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return "", errors.Wrapf(err, "smtp send via %s:%d failed", p.host, p.port)
		}
		return "", nil
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), fmt.Sprintf("smtp send via %s:%d aborted", p.host, p.port))
	}
}
