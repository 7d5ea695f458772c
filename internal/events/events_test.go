package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/plantpal/internal/domain"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (h *recordingHandler) HandleActivityEvent(_ context.Context, e *domain.ActivityEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *e)
	return nil
}

func TestLocalPublisher_DispatchesInline(t *testing.T) {
	h := &recordingHandler{}
	p := NewLocalPublisher(nil)

	require.NoError(t, p.Publish(context.Background(), &domain.ActivityEvent{Type: domain.EventPostLiked}))
	assert.Empty(t, h.events)

	p.SetHandler(h)
	require.NoError(t, p.Publish(context.Background(), &domain.ActivityEvent{
		Type:     domain.EventUserFollowed,
		ActorID:  "a",
		TargetID: "b",
	}))
	require.Len(t, h.events, 1)
	assert.Equal(t, "b", h.events[0].TargetID)
	assert.NoError(t, p.Close())
}

func TestKafkaConsumer_ProcessMessage(t *testing.T) {
	h := &recordingHandler{}
	kc := &KafkaConsumer{handler: h}

	value, err := json.Marshal(domain.ActivityEvent{
		Type:      domain.EventUserUnfollowed,
		ActorID:   "a",
		TargetID:  "b",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	kc.processMessage(context.Background(), &kafka.Message{Value: value})
	kc.processMessage(context.Background(), &kafka.Message{Value: []byte("{not json")})
	kc.processMessage(context.Background(), &kafka.Message{Value: []byte(`{"actorId":"a"}`)})

	require.Len(t, h.events, 1)
	assert.Equal(t, domain.EventUserUnfollowed, h.events[0].Type)
}

func TestActivityEvent_Key(t *testing.T) {
	assert.Equal(t, "b", (&domain.ActivityEvent{ActorID: "a", TargetID: "b"}).Key())
	assert.Equal(t, "a", (&domain.ActivityEvent{ActorID: "a", PostID: "p"}).Key())
}
