package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspy/types"
)

type memoryKV struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func (m *memoryKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.failGet != nil {
		return redis.NewStringResult("", m.failGet)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func TestEnrichmentsRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	c := newEnrichments(kv, "", time.Hour)

	_, ok, err := c.Get(context.Background(), "123:Video")
	require.NoError(t, err)
	assert.False(t, ok)

	in := types.EnrichmentResult{Summary: "s", VideoPrompt: "vp", Status: types.StatusSuccess, Cached: true}
	require.NoError(t, c.Put(context.Background(), "123:Video", in))

	assert.Contains(t, kv.data, "adspy:enrichment:123:Video")
	assert.Equal(t, time.Hour, kv.ttls["adspy:enrichment:123:Video"])

	out, ok, err := c.Get(context.Background(), "123:Video")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s", out.Summary)
	assert.Equal(t, "vp", out.VideoPrompt)
	assert.False(t, out.Cached)
}

func TestEnrichmentsCorruptEntryIsMiss(t *testing.T) {
	kv := newMemoryKV()
	kv.data["p:k"] = "{not json"
	c := newEnrichments(kv, "p:", 0)

	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnrichmentsGetError(t *testing.T) {
	kv := newMemoryKV()
	kv.failGet = errors.New("connection refused")
	c := newEnrichments(kv, "", 0)

	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCloseWithoutConnection(t *testing.T) {
	c := newEnrichments(newMemoryKV(), "", 0)
	assert.NoError(t, c.Close())
}
