package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adspy/types"
)

func newRunHandler(processErr error) (*TypedMessageHandler[types.RunRequest], *[]types.RunRequest) {
	var seen []types.RunRequest
	h := &TypedMessageHandler[types.RunRequest]{
		Validate: func(msg *types.RunRequest) error {
			if msg.SearchTerm == "" && !msg.DryRun {
				return errors.New("search term required")
			}
			return nil
		},
		Process: func(ctx context.Context, msg *types.RunRequest) error {
			seen = append(seen, *msg)
			return processErr
		},
		AlwaysMark: true,
		Logger:     zap.NewNop(),
	}
	return h, &seen
}

func TestHandleMessageMarksSuccessfulRuns(t *testing.T) {
	h, seen := newRunHandler(nil)

	mark, err := h.HandleMessage(context.Background(), []byte(`{"search_term":"crm","workers":3,"dry_run":true}`))
	require.NoError(t, err)
	assert.True(t, mark)
	require.Len(t, *seen, 1)
	assert.Equal(t, "crm", (*seen)[0].SearchTerm)
	assert.Equal(t, 3, (*seen)[0].Workers)
}

func TestHandleMessageSkipsInvalidMessages(t *testing.T) {
	h, seen := newRunHandler(nil)

	for _, msg := range []string{`not json`, `{"limit":5}`} {
		mark, err := h.HandleMessage(context.Background(), []byte(msg))
		require.NoError(t, err)
		assert.True(t, mark, msg)
	}
	assert.Empty(t, *seen)

	h.AlwaysMark = false
	mark, err := h.HandleMessage(context.Background(), []byte(`not json`))
	require.NoError(t, err)
	assert.False(t, mark)
}

func TestHandleMessageLeavesFailedRunsUnmarked(t *testing.T) {
	h, _ := newRunHandler(errors.New("sheet quota"))

	mark, err := h.HandleMessage(context.Background(), []byte(`{"search_term":"crm"}`))
	assert.False(t, mark)
	assert.EqualError(t, err, "sheet quota")
}

func TestNewConsumerRequiresHandler(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9093"}, Topic: "t", GroupID: "g"})
	assert.Error(t, err)
}
