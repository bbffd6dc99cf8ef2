package eventbus

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/logging"
)

type collector struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (c *collector) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.events))
	for i, e := range c.events {
		ids[i] = e.ID
	}
	return ids
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.InitWithOutput(&buf, "debug", "")
	t.Cleanup(func() { logging.InitWithOutput(&bytes.Buffer{}, "info", "") })
	return &buf
}

func TestBus_DispatchesInOrderToAllSubscribers(t *testing.T) {
	captureLogs(t)
	bus := New(16)
	a, b := &collector{}, &collector{}
	bus.Subscribe("a", a)
	bus.Subscribe("b", b)
	bus.Start(context.Background())

	var want []string
	for i := range 5 {
		evt := event.NewRoomStatusChanged(event.RoomStatusChangedPayload{RoomID: int64(i + 1)})
		want = append(want, evt.ID)
		bus.Publish(context.Background(), evt)
	}
	bus.Stop()

	assert.Equal(t, want, a.ids())
	assert.Equal(t, want, b.ids())
}

func TestBus_StopIsIdempotentAndDropsLatePublishes(t *testing.T) {
	logs := captureLogs(t)
	bus := New(4)
	c := &collector{}
	bus.Subscribe("c", c)
	bus.Start(context.Background())
	bus.Stop()
	bus.Stop()

	bus.Publish(context.Background(), event.NewBuildingDeleted(event.BuildingDeletedPayload{BuildingID: 1}))
	assert.Empty(t, c.ids())
	assert.Contains(t, logs.String(), "publish after stop")
}

func TestBus_StopWithoutStartReturns(t *testing.T) {
	captureLogs(t)
	bus := New(4)
	bus.Stop()
	bus.Start(context.Background())
	bus.Stop()
}

func TestBus_DrainsOnContextCancel(t *testing.T) {
	captureLogs(t)
	bus := New(8)
	c := &collector{}
	bus.Subscribe("c", c)

	ctx, cancel := context.WithCancel(context.Background())
	for i := range 3 {
		bus.Publish(ctx, event.NewRoomStatusChanged(event.RoomStatusChangedPayload{RoomID: int64(i)}))
	}
	cancel()
	bus.Start(ctx)
	<-bus.done

	assert.Len(t, c.ids(), 3)
}

func TestBus_HandlerErrorIsLogged(t *testing.T) {
	logs := captureLogs(t)
	bus := New(4)
	bus.Subscribe("broken", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.NewBuildingDeleted(event.BuildingDeletedPayload{BuildingID: 1}))
	bus.Stop()

	assert.Contains(t, logs.String(), "handler=broken")
	assert.Contains(t, logs.String(), "boom")
}

func TestBus_FullBufferDropsEvent(t *testing.T) {
	logs := captureLogs(t)
	bus := New(1)
	bus.Publish(context.Background(), event.NewBuildingDeleted(event.BuildingDeletedPayload{BuildingID: 1}))
	bus.Publish(context.Background(), event.NewBuildingDeleted(event.BuildingDeletedPayload{BuildingID: 2}))

	assert.Contains(t, logs.String(), "buffer full")
}

func TestSignalConsumer_WarnsOnLatePayment(t *testing.T) {
	logs := captureLogs(t)
	c := NewSignalConsumer()

	late := event.NewBillPaid(event.BillPaidPayload{BillID: 1, DaysPastDue: 12, Amount: decimal.NewFromInt(100)})
	require.NoError(t, c.HandleEvent(context.Background(), late))
	assert.Contains(t, logs.String(), "level=warning")

	logs.Reset()
	onTime := event.NewBillPaid(event.BillPaidPayload{BillID: 2, Amount: decimal.NewFromInt(100)})
	require.NoError(t, c.HandleEvent(context.Background(), onTime))
	assert.Contains(t, logs.String(), "level=debug")
}

func TestLogConsumer_LogsEntities(t *testing.T) {
	logs := captureLogs(t)
	evt := event.NewRoomStatusChanged(event.RoomStatusChangedPayload{RoomID: 3, BuildingID: 1})
	require.NoError(t, NewLogConsumer().HandleEvent(context.Background(), evt))

	out := logs.String()
	assert.Contains(t, out, "room:3")
	assert.Contains(t, out, "building:1")
	assert.Contains(t, out, "event_type=room_status_changed")
	assert.Equal(t, logrus.DebugLevel, logging.Logger.GetLevel())
}
