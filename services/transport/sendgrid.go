package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
)

const sendgridEndpoint = "https://api.sendgrid.com/v3/mail/send"

type sendgridProvider struct {
	apiKey     string
	httpClient *http.Client
}

func newSendgridProvider(cfg *config.MailConfig) *sendgridProvider {
	return &sendgridProvider{
		apiKey:     cfg.SendgridAPIKey,
		httpClient: &http.Client{},
	}
}

func (p *sendgridProvider) Name() enum.MailProvider {
	return enum.MailProviderSendgrid
}

func (p *sendgridProvider) Ready() error {
	if p.apiKey == "" {
		return errors.New("sendgrid api key is not configured")
	}
	return nil
}

func (p *sendgridProvider) Send(ctx context.Context, req interfaces.SendRequest) (string, error) {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{
				"to": []map[string]string{{"email": req.To}},
			},
		},
		"from": map[string]string{
			"email": req.FromEmail,
			"name":  req.FromName,
		},
		"subject": req.Subject,
		"content": []map[string]string{
			{"type": req.ContentType, "value": req.Body},
		},
	}
	if req.ReplyTo != "" {
		payload["reply_to"] = map[string]string{"email": req.ReplyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "sendgrid request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("sendgrid returned status %d: %s", resp.StatusCode, string(raw))
	}

	return resp.Header.Get("X-Message-Id"), nil
}
