package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/weiawesome/plantpal/internal/domain"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

const (
	headerEventType = "event_type"
	flushTimeoutMs  = 5000
)

// KafkaPublisher implements Publisher using confluent-kafka-go. Delivery is
// asynchronous; failures are reported by the delivery loop.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

// NewKafkaPublisher starts a producer and makes sure the topic exists with
// at least the given number of partitions.
func NewKafkaPublisher(brokers, topic string, partitions int) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"enable.idempotence": true,
		"linger.ms":          5,
		"compression.type":   "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := createTopic(ctx, p, topic, partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", topic).Msg("could not create topic, relying on broker auto-creation")
	}

	kp := &KafkaPublisher{producer: p, topic: topic, doneCh: make(chan struct{})}
	go kp.reportDeliveries()
	return kp, nil
}

// createTopic reuses the producer's connection for the admin request. An
// existing topic is not an error.
func createTopic(ctx context.Context, p *kafka.Producer, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}
	admin, err := kafka.NewAdminClientFromProducer(p)
	if err != nil {
		return fmt.Errorf("admin client: %w", err)
	}
	defer admin.Close()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}}, kafka.SetAdminOperationTimeout(5*time.Second))
	if err != nil {
		return err
	}
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Error)
		}
	}
	return nil
}

func (kp *KafkaPublisher) reportDeliveries() {
	defer close(kp.doneCh)
	l := pkglog.L()
	for e := range kp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l.Error().Err(ev.TopicPartition.Error).Str("key", string(ev.Key)).Msg("activity event delivery failed")
			}
		case kafka.Error:
			l.Warn().Err(ev).Msg("kafka producer error")
		}
	}
}

// Publish enqueues the event keyed by the affected user so that events for
// one user land on one partition in order.
func (kp *KafkaPublisher) Publish(ctx context.Context, event *domain.ActivityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &kp.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Key()),
		Value:          value,
		Timestamp:      event.Timestamp,
		Headers:        []kafka.Header{{Key: headerEventType, Value: []byte(event.Type)}},
	}
	if err := kp.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce activity event: %w", err)
	}
	return nil
}

// Close flushes pending messages and waits for the delivery loop to exit.
func (kp *KafkaPublisher) Close() error {
	remaining := kp.producer.Flush(flushTimeoutMs)
	kp.producer.Close()
	<-kp.doneCh
	if remaining > 0 {
		return fmt.Errorf("%d activity events not delivered before close", remaining)
	}
	return nil
}

var _ Publisher = (*KafkaPublisher)(nil)
