package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSweepOrphanGoods = "goods.sweep_orphans"

// Sweep reasons recorded on the task payload.
const (
	SweepReasonPurge    = "purge"
	SweepReasonSchedule = "schedule"
)

type SweepOrphanGoodsPayload struct {
	Reason         string    `json:"reason"`
	CalculationIDs []int64   `json:"calculationIds,omitempty"`
	RequestedAt    time.Time `json:"requestedAt"`
}

func NewSweepOrphanGoodsTask(payload SweepOrphanGoodsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSweepOrphanGoods, data), nil
}

func ParseSweepOrphanGoodsPayload(task *asynq.Task) (SweepOrphanGoodsPayload, error) {
	var payload SweepOrphanGoodsPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepOrphanGoodsPayload{}, err
	}
	return payload, nil
}
