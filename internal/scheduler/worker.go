package scheduler

import (
	"context"
	"fmt"

	"delivery_price_calculator/platform/config"
	"delivery_price_calculator/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper deletes goods no calculation references any more.
type Sweeper interface {
	SweepOrphanGoods(ctx context.Context) (int64, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper Sweeper
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		sweeper: sweeper,
		log:     log,
	}

	mux.HandleFunc(TaskSweepOrphanGoods, w.handleSweepOrphanGoods)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSweepOrphanGoods(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSweepOrphanGoodsPayload(task)
	if err != nil {
		return fmt.Errorf("parse %s payload: %v: %w", TaskSweepOrphanGoods, err, asynq.SkipRetry)
	}

	removed, err := w.sweeper.SweepOrphanGoods(ctx)
	if err != nil {
		return err
	}

	w.log.Info("orphan goods sweep finished",
		"reason", payload.Reason,
		"calculations", len(payload.CalculationIDs),
		"removed", removed,
	)
	return nil
}
