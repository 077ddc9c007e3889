package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/enum"
)

const resendEndpoint = "https://api.resend.com/emails"

type resendProvider struct {
	apiKey     string
	httpClient *http.Client
}

func newResendProvider(cfg *config.MailConfig) *resendProvider {
	return &resendProvider{
		apiKey:     cfg.ResendAPIKey,
		httpClient: &http.Client{},
	}
}

func (p *resendProvider) Name() enum.MailProvider {
	return enum.MailProviderResend
}

func (p *resendProvider) Ready() error {
	if p.apiKey == "" {
		return errors.New("resend api key is not configured")
	}
	return nil
}

func (p *resendProvider) Send(ctx context.Context, req interfaces.SendRequest) (string, error) {
	payload := map[string]interface{}{
		"from":    fmt.Sprintf("%s <%s>", req.FromName, req.FromEmail),
		"to":      []string{req.To},
		"subject": req.Subject,
	}
	if req.ContentType == "text/html" {
		payload["html"] = req.Body
	} else {
		payload["text"] = req.Body
	}
	if req.ReplyTo != "" {
		payload["reply_to"] = req.ReplyTo
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "resend request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode >= 300 {
		return "", errors.Errorf("resend returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	return parsed.ID, nil
}
