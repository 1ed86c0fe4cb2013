package model

import "time"

// ClickEvent is the wire message published for every successful redirect.
// KnownClicks is the counter value observed at resolution time; the consumer
// uses it for the read-modify-write fallback when the atomic increment is
// unavailable.
type ClickEvent struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	KnownClicks int64     `json:"known_clicks"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-counter"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
