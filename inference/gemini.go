package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"adspy/common"
)

// Gemini implements Provider with Google's GenAI SDK. Media is sent as
// inline bytes rather than a data URI.
type Gemini struct {
	client *genai.Client
	policy Policy
}

func NewGemini(ctx context.Context, apiKey string, policy Policy) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, policy: policy}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if req.Media != nil && len(req.Media.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Media.Data, req.Media.MIME))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.JSON {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	var reply string
	err := g.policy.run(ctx, "gemini "+req.Model, func(ctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
		if err != nil {
			return classifyGenAIError(err)
		}
		reply = resp.Text()
		if strings.TrimSpace(reply) == "" {
			return ErrEmptyReply
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && common.IsRetryableStatus(apiErr.Code) {
		return unavailable("gemini status %d: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("gemini generate: %w", err)
}
