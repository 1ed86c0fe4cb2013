package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
	infraprom "github.com/ksavin/snipurl/internal/infra/prometheus"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ClickConsumer drains click events from JetStream and applies them to the
// click counter. Each event gets exactly one application attempt: the atomic
// increment first, then a single read-modify-write fallback, then the event
// is dropped. Events are always acked so a failing store never builds an
// unbounded redelivery queue.
type ClickConsumer struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	store   repository.LinkStore
	metrics *infraprom.Metrics
}

// NewClickConsumer creates a new click event consumer.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, store repository.LinkStore, metrics *infraprom.Metrics) *ClickConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = infraprom.NopMetrics()
	}
	return &ClickConsumer{js: js, logger: logger, store: store, metrics: metrics}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *ClickConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ClickStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

const fetchErrorBackoff = time.Second

func (c *ClickConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if isConsumerDone(err) {
				c.logger.Info("click consumer stopped", zap.Error(err))
				return
			}
			c.logger.Error("failed to fetch click events", zap.Error(err))
			time.Sleep(fetchErrorBackoff)
			continue
		}

		for _, msg := range msgs {
			var event model.ClickEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal click event", zap.Error(err))
				msg.Term()
				continue
			}

			c.applyClick(ctx, &event)
			msg.Ack()
		}
	}
}

// isConsumerDone reports whether a fetch error means the connection is gone
// for good and the consume loop should exit instead of retrying.
func isConsumerDone(err error) bool {
	return errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, nats.ErrBadSubscription)
}

// applyClick records one click for the event's code. Accounting is
// best-effort: a double failure loses the click, and the fallback write can
// under-count when redirects race between lookup and update. Both are
// accepted in exchange for never blocking or failing the redirect path.
func (c *ClickConsumer) applyClick(ctx context.Context, event *model.ClickEvent) {
	err := c.store.IncrementClicks(ctx, event.Code)
	if err == nil {
		c.metrics.ClicksApplied.Inc()
		return
	}

	if errors.Is(err, repository.ErrLinkNotFound) {
		c.metrics.ClicksDropped.Inc()
		c.logger.Debug("click for unknown code dropped",
			zap.String("id", event.ID),
			zap.String("code", event.Code))
		return
	}

	c.logger.Warn("atomic click increment failed, falling back",
		zap.String("id", event.ID),
		zap.String("code", event.Code),
		zap.Error(err))

	if err := c.store.SetClicks(ctx, event.Code, event.KnownClicks+1); err != nil {
		c.metrics.ClicksDropped.Inc()
		c.logger.Error("click dropped after fallback failure",
			zap.String("id", event.ID),
			zap.String("code", event.Code),
			zap.Error(err))
		return
	}

	c.metrics.ClicksFellBack.Inc()
}
