package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/channels/gochannel"
	"github.com/gatehouse-id/gatehouse/pkg/eventbus"
	"github.com/gatehouse-id/gatehouse/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.SessionCompleted, 1)

	err := bus.Handle(events.SessionCompletedEvent, func(ctx context.Context, event any) error {
		completed, ok := event.(*events.SessionCompleted)
		require.True(t, ok)

		received <- completed

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	err = bus.Publish(ctx, "acme", &events.SessionCompleted{
		BaseEvent: events.BaseEvent{
			ID:      bus.GenerateID(),
			Type:    events.SessionCompletedEvent,
			RealmID: "acme",
		},
		SessionID: "s1",
		UserID:    "user-42",
	})
	require.NoError(t, err)

	select {
	case completed := <-received:
		assert.Equal(t, "s1", completed.SessionID)
		assert.Equal(t, "user-42", completed.UserID)
		assert.Equal(t, "acme", completed.RealmID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.FlowDeployed, 1)

	err := bus.Handle(events.FlowDeployedEvent, func(ctx context.Context, event any) error {
		received <- event.(*events.FlowDeployed)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this one; it must not wedge the stream.
	err = bus.Publish(ctx, "acme", &events.FlowPublished{
		BaseEvent: events.BaseEvent{Type: events.FlowPublishedEvent, RealmID: "acme"},
		DraftID:   "d1",
	})
	require.NoError(t, err)

	err = bus.Publish(ctx, "acme", &events.FlowDeployed{
		BaseEvent: events.BaseEvent{Type: events.FlowDeployedEvent, RealmID: "acme"},
		VersionID: "v1",
	})
	require.NoError(t, err)

	select {
	case deployed := <-received:
		assert.Equal(t, "v1", deployed.VersionID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
