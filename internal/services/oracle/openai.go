package oracle

import (
	"context"
	"fmt"
	"strings"

	xhttp "X402/pkg/http"

	"github.com/tidwall/gjson"
)

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	url     string
	apiKey  string
	model   string
	retries int
	client  *xhttp.Client
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	base = strings.TrimSuffix(base, "/chat/completions")
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		url:     base + "/chat/completions",
		apiKey:  cfg.APIKey,
		model:   model,
		retries: cfg.MaxRetries,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []map[string]string{}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": user})

	headers := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	body, err := postWithRetry(ctx, c.client, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.url,
		Headers: headers,
		Body:    map[string]any{"model": c.model, "messages": messages, "temperature": 0.5},
	}, c.retries)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return content.String(), nil
}
