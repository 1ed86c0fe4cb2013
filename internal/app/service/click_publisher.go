package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/nats-io/nats.go"
)

// ClickPublisher hands click events to NATS JetStream. Publishing happens
// after the redirect is already on the wire and is never awaited by the
// request path; a failed publish loses at most that one click.
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a new click event publisher.
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// Publish emits one click event for a resolved code. knownClicks is the
// counter value seen at resolution time, carried for the consumer's fallback
// write path.
func (p *ClickPublisher) Publish(code string, knownClicks int64, ip, userAgent string) error {
	event := model.ClickEvent{
		ID:          uuid.New().String(),
		Code:        code,
		KnownClicks: knownClicks,
		IP:          ip,
		UserAgent:   userAgent,
		Timestamp:   time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ClickStreamSubject, data)
	return err
}
