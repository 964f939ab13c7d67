package service

import (
	"context"
	"errors"
	"time"

	"delivery_price_calculator/internal/calculations/repository"
	"delivery_price_calculator/platform/apperr"
	"delivery_price_calculator/platform/events"
	"delivery_price_calculator/platform/logger"

	"github.com/shopspring/decimal"
)

// Service owns calculation history: saving, listing and clearing it.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
	bus  events.Bus // optional, nil disables purge notifications
	gate Gate
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventBus sets the bus purge notifications are published on.
func WithEventBus(bus events.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

// New creates a history service over repo.
func New(repo repository.Repository, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveCalculationParams is the input of SaveCalculation. Goods carry
// measurements only, the store assigns their ids.
type SaveCalculationParams struct {
	OwnerID     int64
	Goods       []GoodMeasure
	TotalVolume float64
	TotalWeight float64
	Price       decimal.Decimal
}

// QueryFilter narrows a history listing. Limit is applied as given, so a
// zero Limit yields an empty page.
type QueryFilter struct {
	OwnerID int64
	Limit   int
	Offset  int
	IDs     []int64
	Policy  DetailPolicy
}

// ClearParams selects what ClearHistory removes. Empty IDs clears everything
// the owner has.
type ClearParams struct {
	OwnerID int64
	IDs     []int64
	Policy  DetailPolicy
}

// ClearResult reports the rows a clear removed.
type ClearResult struct {
	CalculationIDs []int64
	GoodIDs        []int64
}

// SaveCalculation stores goods and the calculation over them in one transaction.
func (s *Service) SaveCalculation(ctx context.Context, params SaveCalculationParams) (int64, error) {
	if len(params.Goods) == 0 {
		return 0, apperr.Validation("at least one good is required").WithOp("calculations.Save")
	}

	var calcID int64
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		goods := make([]repository.Good, len(params.Goods))
		for i, g := range params.Goods {
			goods[i] = repository.Good{
				OwnerID: params.OwnerID,
				Height:  g.Height,
				Width:   g.Width,
				Length:  g.Length,
				Weight:  g.Weight,
			}
		}

		goodIDs, err := tx.InsertGoods(ctx, goods)
		if err != nil {
			return err
		}

		calcID, err = tx.InsertCalculation(ctx, repository.Calculation{
			OwnerID:     params.OwnerID,
			GoodIDs:     goodIDs,
			TotalVolume: params.TotalVolume,
			TotalWeight: params.TotalWeight,
			Price:       params.Price,
			CreatedAt:   s.now(),
		})
		return err
	})
	if err != nil {
		return 0, s.internal(ctx, "calculations.Save", err)
	}

	s.log.WithContext(ctx).Info("calculation saved", "calculation_id", calcID, "goods", len(params.Goods))
	return calcID, nil
}

// QueryCalculations lists the owner's history, newest first.
func (s *Service) QueryCalculations(ctx context.Context, filter QueryFilter) ([]repository.Calculation, error) {
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, apperr.Validation("limit and offset must not be negative").WithOp("calculations.Query")
	}

	var out []repository.Calculation
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		refs, err := s.gate.Resolve(ctx, tx, filter.IDs, filter.OwnerID, filter.Policy)
		if err != nil {
			return err
		}

		out, err = tx.QueryByOwner(ctx, repository.QueryParams{
			OwnerID: filter.OwnerID,
			Limit:   filter.Limit,
			Offset:  filter.Offset,
			IDs:     repository.RefIDs(refs),
		})
		return err
	})
	if err != nil {
		return nil, s.internal(ctx, "calculations.Query", err)
	}
	return out, nil
}

// ResolveCalculations runs the existence and ownership checks on their own.
func (s *Service) ResolveCalculations(ctx context.Context, ownerID int64, ids []int64, policy DetailPolicy) ([]repository.CalculationRef, error) {
	refs, err := s.gate.Resolve(ctx, s.repo, ids, ownerID, policy)
	if err != nil {
		return nil, s.internal(ctx, "calculations.Resolve", err)
	}
	return refs, nil
}

// ClearHistory deletes the selected calculations together with their goods.
func (s *Service) ClearHistory(ctx context.Context, params ClearParams) (ClearResult, error) {
	var result ClearResult
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		var (
			refs []repository.CalculationRef
			err  error
		)
		if len(params.IDs) == 0 {
			refs, err = tx.QueryRefsByOwner(ctx, params.OwnerID)
		} else {
			refs, err = s.gate.Resolve(ctx, tx, params.IDs, params.OwnerID, params.Policy)
		}
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			return nil
		}

		if err := tx.DeleteCascade(ctx, refs); err != nil {
			return err
		}
		result = ClearResult{
			CalculationIDs: repository.RefIDs(refs),
			GoodIDs:        repository.DistinctGoodIDs(refs),
		}
		return nil
	})
	if err != nil {
		return ClearResult{}, s.internal(ctx, "calculations.Clear", err)
	}

	if result.CalculationIDs == nil {
		result = ClearResult{CalculationIDs: []int64{}, GoodIDs: []int64{}}
	}
	s.log.WithContext(ctx).Info("history cleared",
		"calculations", len(result.CalculationIDs),
		"goods", len(result.GoodIDs),
	)
	return result, nil
}

// PurgeCalculations removes calculation rows without their goods. The goods
// are left for the orphan sweep, which is requested through the event bus.
func (s *Service) PurgeCalculations(ctx context.Context, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return apperr.Validation("calculation ids are required").WithOp("calculations.Purge")
	}

	if err := s.repo.DeleteOnly(ctx, ids); err != nil {
		return s.internal(ctx, "calculations.Purge", err)
	}

	s.log.WithContext(ctx).Warn("calculations purged without goods", "calculations", len(ids))
	if s.bus != nil {
		s.bus.Publish(ctx, events.CalculationsPurged{
			BaseEvent:      events.NewBaseEvent(),
			CalculationIDs: ids,
		})
	}
	return nil
}

// SweepOrphanGoods deletes goods no calculation references any more.
func (s *Service) SweepOrphanGoods(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteOrphanGoods(ctx)
	if err != nil {
		return 0, s.internal(ctx, "calculations.SweepOrphanGoods", err)
	}
	if removed > 0 {
		s.log.WithContext(ctx).Info("orphan goods removed", "goods", removed)
	}
	return removed, nil
}

// internal passes domain errors through and turns anything else into a
// logged KindInternal error.
func (s *Service) internal(ctx context.Context, op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Internal("operation cancelled", err).WithOp(op)
	}
	s.log.WithContext(ctx).DatabaseError(op, err)
	return apperr.Internal("calculation store failure", err).WithOp(op)
}
