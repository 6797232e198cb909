package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"adspy/common"
	"adspy/config"
)

// OpenRouter implements Provider using the OpenAI-compatible chat
// completions endpoint.
// Endpoint: POST {base}/chat/completions
// Request: {"model": "...", "messages": [...], "response_format": {"type": "json_object"}}
// Response: {"choices": [{"message": {"content": "..."}}]}
type OpenRouter struct {
	apiKey  string
	baseURL string
	client  *http.Client
	policy  Policy
}

func NewOpenRouter(apiKey, baseURL string, client *http.Client, policy Policy) *OpenRouter {
	if baseURL == "" {
		baseURL = config.OpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		policy:  policy,
	}
}

func (o *OpenRouter) Name() string { return "openrouter" }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (o *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	// Video data URIs ride in image_url parts as well.
	if req.Media != nil && req.Media.DataURI != "" {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: req.Media.DataURI}})
	}

	payload := chatRequest{
		Model:    req.Model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	}
	if req.JSON {
		payload.ResponseFormat = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var reply string
	err = o.policy.run(ctx, "openrouter "+req.Model, func(ctx context.Context) error {
		var callErr error
		reply, callErr = o.post(ctx, body)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (o *OpenRouter) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("X-Title", "adspy")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", unavailable("openrouter transport: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable("read openrouter reply: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if common.IsRetryableStatus(resp.StatusCode) {
			return "", unavailable("openrouter status %d: %s", resp.StatusCode, truncate(raw, 200))
		}
		return "", fmt.Errorf("openrouter error: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode openrouter reply: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return common.Truncate(string(b), n) + "..."
}
