package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspy/common"
)

func testPolicy() Policy {
	return Policy{
		Timeout: 5 * time.Second,
		Retry:   common.Retry{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	}
}

func TestOpenRouterSendsMultimodalJSONRequest(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatReply(`{"summary":"ok"}`))
	}))
	defer srv.Close()

	p := NewOpenRouter("sk-test", srv.URL+"/", srv.Client(), testPolicy())
	reply, err := p.Complete(context.Background(), Request{
		Model:  "openai/gpt-4o",
		Prompt: "describe",
		Media:  &Media{MIME: "image/png", DataURI: "data:image/png;base64,AAAA"},
		JSON:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"ok"}`, reply)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "openai/gpt-4o", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "describe", got.Messages[0].Content[0].Text)
	assert.Equal(t, "data:image/png;base64,AAAA", got.Messages[0].Content[1].ImageURL.URL)
}

func TestOpenRouterTextRequestHasNoMediaPart(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatReply("plain"))
	}))
	defer srv.Close()

	p := NewOpenRouter("k", srv.URL, srv.Client(), testPolicy())
	_, err := p.Complete(context.Background(), Request{Model: "m", Prompt: "hi"})
	require.NoError(t, err)

	require.Len(t, got.Messages[0].Content, 1)
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenRouterRetriesUnavailable(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(chatReply("third time"))
	}))
	defer srv.Close()

	p := NewOpenRouter("k", srv.URL, srv.Client(), testPolicy())
	reply, err := p.Complete(context.Background(), Request{Model: "m", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "third time", reply)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestOpenRouterGivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenRouter("k", srv.URL, srv.Client(), testPolicy())
	_, err := p.Complete(context.Background(), Request{Model: "m", Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestOpenRouterClientErrorIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer srv.Close()

	p := NewOpenRouter("k", srv.URL, srv.Client(), testPolicy())
	_, err := p.Complete(context.Background(), Request{Model: "m", Prompt: "hi"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOpenRouterEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p := NewOpenRouter("k", srv.URL, srv.Client(), testPolicy())
	_, err := p.Complete(context.Background(), Request{Model: "m", Prompt: "hi"})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenRouterHonoursCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	policy := testPolicy()
	policy.Timeout = 50 * time.Millisecond

	p := NewOpenRouter("k", srv.URL, srv.Client(), policy)
	start := time.Now()
	_, err := p.Complete(context.Background(), Request{Model: "m", Prompt: "hi"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCohereRejectsMedia(t *testing.T) {
	c := NewCohere("key", testPolicy())
	_, err := c.Complete(context.Background(), Request{Model: "command-r-plus", Prompt: "x", Media: &Media{MIME: "image/png"}})
	assert.ErrorIs(t, err, ErrMediaUnsupported)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", testPolicy())
	assert.Error(t, err)
}
