package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/weiawesome/plantpal/internal/domain"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

// KafkaConsumer feeds activity events from a topic into a Handler.
type KafkaConsumer struct {
	consumer *kafka.Consumer
	topic    string
	handler  Handler
	doneCh   chan struct{}
}

// NewKafkaConsumer creates a consumer in groupID for topic.
func NewKafkaConsumer(brokers, topic, groupID string, handler Handler) (*KafkaConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &KafkaConsumer{
		consumer: c,
		topic:    topic,
		handler:  handler,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start subscribes and runs the consume loop until ctx is cancelled.
func (kc *KafkaConsumer) Start(ctx context.Context) error {
	if err := kc.consumer.Subscribe(kc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", kc.topic, err)
	}

	l := pkglog.L()
	l.Info().Str("topic", kc.topic).Msg("activity event consumer started")

	go kc.consumeLoop(ctx)
	return nil
}

func (kc *KafkaConsumer) consumeLoop(ctx context.Context) {
	l := pkglog.L()
	defer close(kc.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("activity event consumer shutting down")
			return
		default:
			msg, err := kc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("kafka consumer error")
				continue
			}
			// Detached so an in-flight event finishes after the shutdown signal.
			kc.processMessage(context.WithoutCancel(ctx), msg)
		}
	}
}

func (kc *KafkaConsumer) processMessage(ctx context.Context, msg *kafka.Message) {
	l := pkglog.L()

	var event domain.ActivityEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		l.Error().Err(err).Msg("failed to unmarshal activity event")
		return
	}
	if event.Type == "" {
		l.Warn().Str("key", string(msg.Key)).Msg("activity event without type, skipping")
		return
	}

	l.Debug().
		Str(pkglog.FieldEvent, event.Type).
		Str(pkglog.FieldUserID, event.ActorID).
		Msg("received activity event")

	if err := kc.handler.HandleActivityEvent(ctx, &event); err != nil {
		l.Error().Err(err).Str(pkglog.FieldEvent, event.Type).Msg("failed to handle activity event")
	}
}

// Close waits for the consume loop to drain, then closes the Kafka client.
// ctx passed to Start must already be cancelled.
func (kc *KafkaConsumer) Close() error {
	<-kc.doneCh
	if err := kc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}

var _ Consumer = (*KafkaConsumer)(nil)
