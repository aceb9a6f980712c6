package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/underwrite/internal/domain"
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// newMessage wraps a payload, stamping the score request id carried by ctx
// into the metadata.
func newMessage(ctx context.Context, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	if id := domain.RequestIDFrom(ctx); id != "" {
		msg.Metadata[domain.MetaRequestID] = id
	}
	return msg
}

// handlerContext restores the score request id of msg for its handler.
func handlerContext(ctx context.Context, msg *domain.Message) context.Context {
	return domain.WithRequestID(ctx, msg.Metadata[domain.MetaRequestID])
}
