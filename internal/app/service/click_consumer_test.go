package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/ksavin/snipurl/internal/app/repository"
	"github.com/nats-io/nats.go"
)

func TestClickConsumer_ApplyClick_Atomic(t *testing.T) {
	var increments, fallbacks int
	store := &mockLinkStore{
		incrementFn: func(ctx context.Context, code string) error {
			increments++
			return nil
		},
		setFn: func(ctx context.Context, code string, clicks int64) error {
			fallbacks++
			return nil
		},
	}

	consumer := NewClickConsumer(nil, nil, store, nil)
	consumer.applyClick(context.Background(), &model.ClickEvent{Code: "abc123", KnownClicks: 4})

	if increments != 1 {
		t.Fatalf("expected 1 atomic increment, got %d", increments)
	}
	if fallbacks != 0 {
		t.Fatalf("fallback must not run when the atomic path succeeds, ran %d times", fallbacks)
	}
}

func TestClickConsumer_ApplyClick_FallsBack(t *testing.T) {
	var fallbackValue int64 = -1
	store := &mockLinkStore{
		incrementFn: func(ctx context.Context, code string) error {
			return errors.New("operator does not exist")
		},
		setFn: func(ctx context.Context, code string, clicks int64) error {
			fallbackValue = clicks
			return nil
		},
	}

	consumer := NewClickConsumer(nil, nil, store, nil)
	consumer.applyClick(context.Background(), &model.ClickEvent{Code: "abc123", KnownClicks: 4})

	if fallbackValue != 5 {
		t.Fatalf("expected fallback to write knownClicks+1 = 5, got %d", fallbackValue)
	}
}

func TestClickConsumer_ApplyClick_DropsOnDoubleFailure(t *testing.T) {
	var fallbacks int
	store := &mockLinkStore{
		incrementFn: func(ctx context.Context, code string) error {
			return errors.New("connection reset")
		},
		setFn: func(ctx context.Context, code string, clicks int64) error {
			fallbacks++
			return errors.New("connection reset")
		},
	}

	consumer := NewClickConsumer(nil, nil, store, nil)
	// Must swallow the failure: one fallback attempt, no retry, no panic.
	consumer.applyClick(context.Background(), &model.ClickEvent{Code: "abc123", KnownClicks: 4})

	if fallbacks != 1 {
		t.Fatalf("expected exactly one fallback attempt, got %d", fallbacks)
	}
}

func TestClickConsumer_IsConsumerDone(t *testing.T) {
	for _, err := range []error{nats.ErrConnectionClosed, nats.ErrConnectionDraining, nats.ErrBadSubscription} {
		if !isConsumerDone(err) {
			t.Fatalf("expected consume loop to stop on %v", err)
		}
	}
	for _, err := range []error{nats.ErrTimeout, errors.New("connection reset")} {
		if isConsumerDone(err) {
			t.Fatalf("expected consume loop to keep retrying on %v", err)
		}
	}
}

func TestClickConsumer_ApplyClick_UnknownCode(t *testing.T) {
	store := &mockLinkStore{
		incrementFn: func(ctx context.Context, code string) error {
			return repository.ErrLinkNotFound
		},
		setFn: func(ctx context.Context, code string, clicks int64) error {
			t.Fatal("fallback must not run for unknown codes")
			return nil
		},
	}

	consumer := NewClickConsumer(nil, nil, store, nil)
	consumer.applyClick(context.Background(), &model.ClickEvent{Code: "nosuch", KnownClicks: 0})
}
