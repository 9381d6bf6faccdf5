package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
)

func transition(listing, from, to string) event.DomainEvent {
	return event.NewListingTransitioned(event.ListingTransitionedPayload{
		ListingID: listing, OwnerID: "owner-1", From: from, To: to, Actor: "mod-1", Role: "moderator",
	})
}

func TestBus_DispatchesInOrderAndDrainsOnStop(t *testing.T) {
	bus := New(16, nil)
	var mu sync.Mutex
	var got []string
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.ID)
		return nil
	}))
	bus.Start(context.Background())

	var want []string
	for i := 0; i < 10; i++ {
		evt := transition("l1", "draft", "submitted")
		want = append(want, evt.ID)
		bus.Publish(context.Background(), evt)
	}
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestBus_HandlerErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := New(4, zap.New(core))
	calls := 0
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Subscribe("after", HandlerFunc(func(context.Context, event.DomainEvent) error {
		calls++
		return nil
	}))
	bus.Start(context.Background())
	bus.Publish(context.Background(), transition("l1", "draft", "submitted"))
	bus.Stop()

	assert.Equal(t, 1, calls, "a failing handler does not stop later ones")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failing", logs.All()[0].ContextMap()["handler"])
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := New(1, zap.New(core))
	bus.Start(context.Background())
	bus.Stop()
	bus.Stop()
	bus.Publish(context.Background(), transition("l1", "draft", "submitted"))
	assert.Equal(t, 1, logs.Len())
}

func TestQueueConsumer(t *testing.T) {
	ctx := context.Background()
	q := NewQueueConsumer()

	require.NoError(t, q.HandleEvent(ctx, transition("l1", "draft", "submitted")))
	require.NoError(t, q.HandleEvent(ctx, transition("l2", "draft", "submitted")))
	require.NoError(t, q.HandleEvent(ctx, transition("l1", "submitted", "under_review")))

	pending := q.Pending()
	require.Len(t, pending, 2)
	states := map[string]string{}
	for _, it := range pending {
		states[it.ListingID] = it.State
	}
	assert.Equal(t, "under_review", states["l1"])

	require.NoError(t, q.HandleEvent(ctx, transition("l1", "under_review", "approved")))
	require.NoError(t, q.HandleEvent(ctx, transition("l2", "live", "needs_reapproval")))
	pending = q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "needs_reapproval", pending[0].State)

	other := event.NewListingCreated(event.ListingCreatedPayload{ListingID: "l3", TemplateID: "t", OwnerID: "o"})
	require.NoError(t, q.HandleEvent(ctx, other))
	assert.Len(t, q.Pending(), 1)
}

func TestLogConsumer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewLogConsumer(zap.New(core))
	require.NoError(t, c.HandleEvent(context.Background(), transition("l1", "draft", "submitted")))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, event.TypeListingTransitioned, entry.ContextMap()["type"])
	assert.Contains(t, entry.Message, "draft -> submitted")
}
