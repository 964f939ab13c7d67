package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls atomic.Int32

	bus.Subscribe("calculations.purged", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return errors.New("first")
	}))
	bus.Subscribe("calculations.purged", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		panic("second")
	}))

	err := bus.PublishSync(context.Background(), CalculationsPurged{BaseEvent: NewBaseEvent(), CalculationIDs: []int64{1}})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls.Load())
	}
}

func TestPublishRunsHandlersAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(nil)
	got := make(chan []int64, 1)

	bus.Subscribe(CalculationsPurged{}.EventName(), HandlerFunc(func(_ context.Context, e Event) error {
		got <- e.(CalculationsPurged).CalculationIDs
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, CalculationsPurged{BaseEvent: NewBaseEvent(), CalculationIDs: []int64{7, 8}})
	cancel()
	bus.Wait()

	ids := <-got
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Fatalf("expected [7 8], got %v", ids)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	if err := bus.PublishSync(context.Background(), CalculationsPurged{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
