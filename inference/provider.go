// Package inference wraps the language model backends used to enrich ads.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adspy/common"
)

var (
	// ErrUnavailable marks rate limits, 5xx replies and transport failures.
	// It matches common.ErrRetryable so the retry loop picks it up.
	ErrUnavailable = fmt.Errorf("upstream unavailable: %w", common.ErrRetryable)

	// ErrMediaUnsupported is returned by text-only providers given media.
	ErrMediaUnsupported = errors.New("provider does not accept media")

	// ErrEmptyReply means the provider answered without any text.
	ErrEmptyReply = errors.New("empty model reply")
)

// Media is an attachment for multimodal requests.
type Media struct {
	MIME    string
	DataURI string
	Data    []byte
}

type Request struct {
	Model  string
	Prompt string
	Media  *Media
	// JSON asks the provider for a JSON object reply when it supports it.
	JSON bool
}

// Provider completes a single prompt against one backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Policy bounds each call. Retries share the call's timeout.
type Policy struct {
	Timeout time.Duration
	Retry   common.Retry
}

func (p Policy) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return p.Retry.Do(ctx, operation, fn)
}

// unavailable tags err as retryable.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}
