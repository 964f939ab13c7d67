package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery_price_calculator/internal/calculations/repository"
	"delivery_price_calculator/internal/calculations/repository/memory"
	"delivery_price_calculator/platform/logger"
)

var errStoreDown = errors.New("store down")

// tickingClock returns a clock that advances one minute per call.
func tickingClock() func() time.Time {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func newTestService(repo repository.Repository, opts ...Option) *Service {
	opts = append([]Option{WithClock(tickingClock())}, opts...)
	return New(repo, logger.Nop(), opts...)
}

func saveN(t *testing.T, svc *Service, owner int64, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := svc.SaveCalculation(context.Background(), SaveCalculationParams{
			OwnerID: owner,
			Goods:   []GoodMeasure{{Height: 1, Width: 1, Length: 1, Weight: float64(i + 1)}, {Weight: 1}},
		})
		if err != nil {
			t.Fatalf("save calculation: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// faultyStore wraps a store and fails selected operations, including inside
// transactions it opens.
type faultyStore struct {
	repository.Repository
	failInsertCalculation bool
	failDeleteCascade     bool
	failQueryByOwner      bool
	refsByIDsCalls        *int
}

func (f *faultyStore) WithinTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return f.Repository.WithinTx(ctx, func(tx repository.Repository) error {
		inner := *f
		inner.Repository = tx
		return fn(&inner)
	})
}

func (f *faultyStore) InsertCalculation(ctx context.Context, calc repository.Calculation) (int64, error) {
	if f.failInsertCalculation {
		return 0, errStoreDown
	}
	return f.Repository.InsertCalculation(ctx, calc)
}

func (f *faultyStore) DeleteCascade(ctx context.Context, refs []repository.CalculationRef) error {
	if f.failDeleteCascade {
		return errStoreDown
	}
	return f.Repository.DeleteCascade(ctx, refs)
}

func (f *faultyStore) QueryByOwner(ctx context.Context, params repository.QueryParams) ([]repository.Calculation, error) {
	if f.failQueryByOwner {
		return nil, errStoreDown
	}
	return f.Repository.QueryByOwner(ctx, params)
}

func (f *faultyStore) QueryRefsByIDs(ctx context.Context, ids []int64) ([]repository.CalculationRef, error) {
	if f.refsByIDsCalls != nil {
		*f.refsByIDsCalls++
	}
	return f.Repository.QueryRefsByIDs(ctx, ids)
}

var _ repository.Repository = (*faultyStore)(nil)

func newMemory() *memory.Store {
	return memory.New()
}
