package kafka

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// TypedMessageHandler decodes each message into T before processing it.
type TypedMessageHandler[T any] struct {
	// Validate rejects messages that should never be processed
	Validate func(msg *T) error
	// Process handles a decoded, valid message
	Process func(ctx context.Context, msg *T) error
	// AlwaysMark commits offsets of undecodable or invalid messages so
	// they are not redelivered
	AlwaysMark bool
	Logger     *zap.Logger
}

func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Skipping undecodable message", zap.Error(err))
		return h.AlwaysMark, nil
	}

	if h.Validate != nil {
		if err := h.Validate(&msg); err != nil {
			logger.Warn("Skipping invalid message", zap.Error(err))
			return h.AlwaysMark, nil
		}
	}

	// Failed processing is left unmarked for redelivery
	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
