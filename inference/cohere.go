package inference

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"

	"adspy/common"
)

// Cohere implements Provider with the Cohere chat API. It is text only.
// SDK: github.com/cohere-ai/cohere-go/v2
type Cohere struct {
	client *cohereclient.Client
	policy Policy
}

func NewCohere(apiKey string, policy Policy) *Cohere {
	// Force HTTP/1.1 to avoid HTTP/2 protocol errors
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Cohere{client: client, policy: policy}
}

func (c *Cohere) Name() string { return "cohere" }

func (c *Cohere) Complete(ctx context.Context, req Request) (string, error) {
	if req.Media != nil {
		return "", ErrMediaUnsupported
	}

	model := req.Model
	var reply string
	err := c.policy.run(ctx, "cohere "+model, func(ctx context.Context) error {
		resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
			Message: req.Prompt,
			Model:   &model,
		})
		if err != nil {
			return classifyCohereError(err)
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return ErrEmptyReply
		}
		reply = resp.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func classifyCohereError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && common.IsRetryableStatus(apiErr.StatusCode) {
		return unavailable("cohere status %d: %v", apiErr.StatusCode, err)
	}
	return fmt.Errorf("cohere chat error: %w", err)
}
