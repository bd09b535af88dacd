package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic        = "pos.orders"
	EventOrderSubmitted = "order.submitted"
	batchSize           = 100
)

// Outbox is the journal side of the poller.
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]journal.Submission, error)
	MarkPublished(ctx context.Context, id string) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderSubmitted is the message value published for every accepted checkout.
type OrderSubmitted struct {
	EventType    string          `json:"event_type"`
	OrderID      string          `json:"order_id"`
	SubmissionID string          `json:"submission_id"`
	SessionID    string          `json:"session_id"`
	TerminalID   string          `json:"terminal_id,omitempty"`
	DisplayTotal string          `json:"display_total"`
	Order        json.RawMessage `json:"order"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

type OutboxPoller struct {
	tick   time.Duration
	outbox Outbox
	writer messageWriter
	logger *zap.Logger
}

func NewOutboxPoller(outbox Outbox, topic string, logger *zap.Logger, brokers ...string) *OutboxPoller {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(outbox, w, time.Second, logger)
}

func newOutboxPoller(outbox Outbox, w messageWriter, tick time.Duration, logger *zap.Logger) *OutboxPoller {
	return &OutboxPoller{tick: tick, outbox: outbox, writer: w, logger: logger}
}

// Run publishes pending submissions every tick until ctx is done.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublished(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublished(ctx context.Context) {
	pending, err := p.outbox.Unpublished(ctx, batchSize)
	if err != nil {
		p.logger.Warn("failed to fetch unpublished submissions", zap.Error(err))
		return
	}

	for _, s := range pending {
		if err := p.publish(ctx, s); err != nil {
			p.logger.Warn("failed to publish order event",
				zap.String("submission_id", s.ID), zap.String("order_id", s.OrderID), zap.Error(err))
			continue
		}

		if err := p.outbox.MarkPublished(ctx, s.ID); err != nil {
			p.logger.Warn("failed to mark submission published",
				zap.String("submission_id", s.ID), zap.Error(err))
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, s journal.Submission) error {
	value, err := json.Marshal(OrderSubmitted{
		EventType:    EventOrderSubmitted,
		OrderID:      s.OrderID,
		SubmissionID: s.ID,
		SessionID:    s.SessionID,
		TerminalID:   s.TerminalID,
		DisplayTotal: s.DisplayTotal.StringFixed(2),
		Order:        s.Payload,
		SubmittedAt:  s.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(s.OrderID), // per-order ordering
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderSubmitted)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
