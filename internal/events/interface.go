package events

import (
	"context"

	"github.com/weiawesome/plantpal/internal/domain"
)

// Publisher emits activity events. Publishing is best effort: callers log
// failures and do not fail the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event *domain.ActivityEvent) error
	Close() error
}

// Handler applies an activity event to derived state.
type Handler interface {
	HandleActivityEvent(ctx context.Context, event *domain.ActivityEvent) error
}

// Consumer manages the lifecycle of a broker subscription.
type Consumer interface {
	Start(ctx context.Context) error
	Close() error
}
