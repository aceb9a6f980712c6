// Package worker scores documents published on the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/scoring"
)

// Worker consumes score requests, persists the results and publishes them.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	scorer *scoring.Scorer

	mu            sync.Mutex
	subscriptions []domain.Subscription
	slots         chan struct{}
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// WorkerCount bounds the number of requests scored at once.
	WorkerCount int
}

// NewWorker creates a new async worker. repo may be nil.
func NewWorker(bus domain.EventBus, repo domain.Repository, scorer *scoring.Scorer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		scorer: scorer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to score requests.
func (w *Worker) Start(cfg Config) error {
	count := cfg.WorkerCount
	if count <= 0 {
		count = 1
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.slots = make(chan struct{}, count)

	sub, err := w.bus.Subscribe(w.ctx, domain.TopicScoreRequested, w.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", domain.TopicScoreRequested, err)
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("score worker started",
		"topic", domain.TopicScoreRequested,
		"worker_count", count,
	)
	return nil
}

// handleMessage hands a request to a free slot, waiting while all are busy.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.slots }()

		if err := w.processRequest(context.WithoutCancel(ctx), msg); err != nil {
			slog.Error("score request failed",
				"message_id", msg.ID,
				"error", err,
			)
		}
	}()
	return nil
}

// processRequest scores one request, saves it and publishes the result.
func (w *Worker) processRequest(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req domain.ScoreRequestedEvent
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return fmt.Errorf("failed to parse score request: %w", err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = msg.Metadata[domain.MetaRequestID]
	}
	if requestID == "" {
		requestID = msg.ID
	}
	ctx = domain.WithRequestID(ctx, requestID)

	slog.Debug("processing score request", "request_id", requestID)

	result := w.scorer.CalculateScores(ctx, req.Prefi, req.Plaid)

	completed := domain.ScoreCompletedEvent{
		RequestID: requestID,
		Result:    result,
	}

	if w.repo != nil {
		record, err := w.repo.SaveScore(ctx, result, &req.ScoreRequest)
		if err != nil {
			slog.Error("failed to save score",
				"request_id", requestID,
				"error", err,
			)
		} else {
			completed.HistoryID = record.ID
		}
	}

	payload, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("failed to encode score result: %w", err)
	}
	if err := w.bus.Publish(ctx, domain.TopicScoreCompleted, payload); err != nil {
		slog.Error("failed to publish score result",
			"request_id", requestID,
			"error", err,
		)
	}

	slog.Info("score request processed",
		"request_id", requestID,
		"history_id", completed.HistoryID,
		"total_score", result.TotalScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop unsubscribes and waits for in-flight requests.
func (w *Worker) Stop() error {
	w.mu.Lock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()

	slog.Info("score worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
