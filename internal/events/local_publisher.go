package events

import (
	"context"

	"github.com/weiawesome/plantpal/internal/domain"
)

// LocalPublisher hands events straight to a Handler in the caller's
// goroutine. It is used when no broker is configured.
type LocalPublisher struct {
	handler Handler
}

func NewLocalPublisher(handler Handler) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

// SetHandler wires the handler after construction, for handlers that
// themselves depend on the publisher.
func (p *LocalPublisher) SetHandler(handler Handler) {
	p.handler = handler
}

func (p *LocalPublisher) Publish(ctx context.Context, event *domain.ActivityEvent) error {
	if p.handler == nil {
		return nil
	}
	return p.handler.HandleActivityEvent(ctx, event)
}

func (p *LocalPublisher) Close() error { return nil }

var _ Publisher = (*LocalPublisher)(nil)
