package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/internal/enum"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

type openAIProvider struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func newOpenAIProvider(cfg *config.AIConfig) *openAIProvider {
	return &openAIProvider{
		apiKey:      cfg.OpenAIAPIKey,
		model:       cfg.OpenAIModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{},
	}
}

func (p *openAIProvider) Name() enum.AIProvider {
	return enum.AIProviderOpenAI
}

func (p *openAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a professional email assistant."},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  p.maxTokens,
		"temperature": p.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "openai request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("openai returned status %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

type geminiProvider struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func newGeminiProvider(cfg *config.AIConfig) *geminiProvider {
	return &geminiProvider{
		apiKey:      cfg.GeminiAPIKey,
		model:       cfg.GeminiModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{},
	}
}

func (p *geminiProvider) Name() enum.AIProvider {
	return enum.AIProviderGemini
}

func (p *geminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": p.maxTokens,
			"temperature":     p.temperature,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	url := fmt.Sprintf(geminiEndpoint, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "gemini request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("gemini returned status %d: %s", resp.StatusCode, truncateBody(raw))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	var parts []string
	for _, part := range parsed.Candidates[0].Content.Parts {
		parts = append(parts, part.Text)
	}
	return strings.Join(parts, ""), nil
}

func truncateBody(raw []byte) string {
	const max = 256
	s := string(raw)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
