package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `yaml:"type" json:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `yaml:"channelBufferSize" json:"channelBufferSize"`

	// NATS settings (Pro tier)
	NATSUrl           string `yaml:"natsUrl" json:"natsUrl"`
	NATSToken         string `yaml:"natsToken" json:"-"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects" json:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait" json:"natsReconnectWait"` // seconds
}

// MetaRequestID is the message metadata key for the score request id.
const MetaRequestID = "request_id"

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying the score request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the score request id carried by ctx.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Standard topic names for the scoring pipeline.
const (
	TopicScoreRequested = "underwrite.score.requested"
	TopicScoreCompleted = "underwrite.score.completed"
)

// ScoreRequestedEvent is the payload of TopicScoreRequested.
type ScoreRequestedEvent struct {
	RequestID string `json:"requestId"`
	ScoreRequest
}

// ScoreCompletedEvent is the payload of TopicScoreCompleted.
type ScoreCompletedEvent struct {
	RequestID string       `json:"requestId,omitempty"`
	HistoryID int64        `json:"historyId,omitempty"`
	Result    *ScoreResult `json:"result"`
}
