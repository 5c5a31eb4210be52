package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	xhttp "X402/pkg/http"

	"github.com/tidwall/gjson"
)

// GeminiClient calls the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	url     string
	apiKey  string
	retries int
	client  *xhttp.Client
}

func NewGeminiClient(cfg Config) *GeminiClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-flash-latest"
	}
	return &GeminiClient{
		url:     fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(model)),
		apiKey:  cfg.APIKey,
		retries: cfg.MaxRetries,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
	}
}

func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": user}}},
		},
	}
	if system != "" {
		payload["systemInstruction"] = map[string]any{"parts": []map[string]string{{"text": system}}}
	}

	body, err := postWithRetry(ctx, c.client, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.url,
		Headers: map[string]string{"Content-Type": "application/json", "x-goog-api-key": c.apiKey},
		Body:    payload,
	}, c.retries)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return "", fmt.Errorf("generate content: no candidates")
	}
	return text.String(), nil
}
