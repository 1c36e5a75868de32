package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/classworks/backend-paygw/internal/events"
)

type stubStore struct {
	lastTopic     string
	lastAggregate string
	lastPayload   []byte
	err           error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	if s.err != nil {
		return events.Event{}, s.err
	}
	s.lastTopic = topic
	s.lastAggregate = aggregateID
	s.lastPayload = payload
	return events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	payload := map[string]any{"orderId": "order_1", "amount": 15000}
	ev, err := bus.Emit(context.Background(), events.TopicPaymentCaptured, "order_1", payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicPaymentCaptured, store.lastTopic)
	require.Equal(t, "order_1", store.lastAggregate)
	require.JSONEq(t, `{"orderId":"order_1","amount":15000}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, ev.ID, notifier.events[0].ID)
}

func TestEmitRejectsEmptyTopic(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "  ", "order_1", nil)
	require.Error(t, err)
}

func TestEmitRejectsEmptyAggregate(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicPaymentFailed, "", nil)
	require.Error(t, err)
}

func TestEmitNilPayloadBecomesEmptyObject(t *testing.T) {
	store := &stubStore{}
	bus := &events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), events.TopicPaymentFailed, "order_1", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(store.lastPayload))
}

func TestEmitRejectsInvalidRawJSON(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicPaymentFailed, "order_1", json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestDefaultTopicsStable(t *testing.T) {
	require.Equal(t, []string{
		events.TopicPaymentCaptured,
		events.TopicPaymentFailed,
		events.TopicEnrolmentDelivered,
	}, events.DefaultTopics())
}

func TestEmitNotifierErrorDoesNotLoseEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{err: errors.New("sink unavailable")}
	bus := &events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), events.TopicEnrolmentDelivered, "order_1", map[string]string{"userId": "42"})
	require.Error(t, err)
	require.NotEqual(t, uuid.Nil, ev.ID)
	require.Equal(t, events.TopicEnrolmentDelivered, store.lastTopic)
}
