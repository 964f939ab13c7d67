package scheduler

import (
	"context"
	"fmt"
	"time"

	"delivery_price_calculator/platform/events"
	"delivery_price_calculator/platform/logger"
)

// PurgeSubscriber turns CalculationsPurged events into sweep tasks.
type PurgeSubscriber struct {
	scheduler SweepScheduler
	log       *logger.Logger
}

func NewPurgeSubscriber(scheduler SweepScheduler, log *logger.Logger) *PurgeSubscriber {
	return &PurgeSubscriber{scheduler: scheduler, log: log}
}

// RegisterHandlers subscribes to the events the scheduler reacts to.
func (s *PurgeSubscriber) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.CalculationsPurged{}.EventName(), s)
}

// Handle implements events.Handler.
func (s *PurgeSubscriber) Handle(ctx context.Context, event events.Event) error {
	purged, ok := event.(events.CalculationsPurged)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	if s.scheduler == nil {
		return nil
	}

	err := s.scheduler.ScheduleOrphanSweep(ctx, SweepOrphanGoodsPayload{
		Reason:         SweepReasonPurge,
		CalculationIDs: purged.CalculationIDs,
		RequestedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("schedule orphan sweep: %w", err)
	}

	s.log.Info("orphan goods sweep scheduled", "calculations", len(purged.CalculationIDs))
	return nil
}

var _ events.Handler = (*PurgeSubscriber)(nil)
