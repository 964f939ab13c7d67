package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Good is one parcel measurement owned by exactly one calculation.
type Good struct {
	ID      int64   `db:"id"`
	OwnerID int64   `db:"user_id"`
	Height  float64 `db:"height"`
	Width   float64 `db:"width"`
	Length  float64 `db:"length"`
	Weight  float64 `db:"weight"`
}

// Calculation is a persisted price computation over a set of goods.
type Calculation struct {
	ID          int64           `db:"id"`
	OwnerID     int64           `db:"user_id"`
	GoodIDs     []int64         `db:"good_ids"`
	TotalVolume float64         `db:"total_volume"`
	TotalWeight float64         `db:"total_weight"`
	Price       decimal.Decimal `db:"price"`
	CreatedAt   time.Time       `db:"at"`
}

// CalculationRef is the id/owner/goods projection used for existence checks
// and cascade deletes.
type CalculationRef struct {
	ID      int64   `db:"id"`
	OwnerID int64   `db:"user_id"`
	GoodIDs []int64 `db:"good_ids"`
}

// QueryParams filters an owner's history. IDs narrows the result when non-empty.
type QueryParams struct {
	OwnerID int64
	Limit   int
	Offset  int
	IDs     []int64
}

// Repository defines calculation storage operations.
type Repository interface {
	InsertGoods(ctx context.Context, goods []Good) ([]int64, error)
	InsertCalculation(ctx context.Context, calc Calculation) (int64, error)

	QueryByOwner(ctx context.Context, params QueryParams) ([]Calculation, error)
	QueryRefsByIDs(ctx context.Context, ids []int64) ([]CalculationRef, error)
	QueryRefsByOwner(ctx context.Context, ownerID int64) ([]CalculationRef, error)

	DeleteCascade(ctx context.Context, refs []CalculationRef) error
	DeleteOnly(ctx context.Context, ids []int64) error
	DeleteOrphanGoods(ctx context.Context) (int64, error)

	// WithinTx runs fn against a repository bound to one read-committed
	// transaction. fn's error, a panic or ctx cancellation rolls it back.
	// Calling WithinTx on a transaction-bound repository reuses that transaction.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}

// DistinctGoodIDs returns the union of refs' good ids, first occurrence order.
func DistinctGoodIDs(refs []CalculationRef) []int64 {
	seen := make(map[int64]struct{})
	out := make([]int64, 0)
	for _, ref := range refs {
		for _, id := range ref.GoodIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// RefIDs returns the calculation ids of refs.
func RefIDs(refs []CalculationRef) []int64 {
	out := make([]int64, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ID)
	}
	return out
}
