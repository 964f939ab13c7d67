package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	insertGoodQuery = `
		INSERT INTO goods (user_id, width, height, length, weight)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	insertCalculationQuery = `
		INSERT INTO calculations (user_id, good_ids, total_volume, total_weight, price, at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		RETURNING id`

	queryByOwnerQuery = `
		SELECT id, user_id, good_ids, total_volume, total_weight, price::text, at
		FROM calculations
		WHERE user_id = $1
		  AND (cardinality($2::bigint[]) = 0 OR id = ANY($2::bigint[]))
		ORDER BY at DESC, id ASC
		LIMIT $3 OFFSET $4`

	queryRefsByIDsQuery = `
		SELECT id, user_id, good_ids
		FROM calculations
		WHERE id = ANY($1::bigint[])`

	queryRefsByOwnerQuery = `
		SELECT id, user_id, good_ids
		FROM calculations
		WHERE user_id = $1
		ORDER BY id`

	deleteCalculationsQuery = `DELETE FROM calculations WHERE id = ANY($1::bigint[])`

	deleteGoodsQuery = `DELETE FROM goods WHERE id = ANY($1::bigint[])`

	deleteOrphanGoodsQuery = `
		DELETE FROM goods g
		WHERE NOT EXISTS (
			SELECT 1 FROM calculations c WHERE g.id = ANY(c.good_ids)
		)`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repo implements the calculations repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	db   querier
	tx   pgx.Tx
}

// New creates a new calculations repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, db: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// WithinTx runs fn inside a read-committed transaction.
func (r *Repo) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once committed. Detached so a cancelled request still rolls back.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(&Repo{pool: r.pool, db: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertGoods inserts goods and returns their ids in input order.
func (r *Repo) InsertGoods(ctx context.Context, goods []Good) ([]int64, error) {
	if len(goods) == 0 {
		return []int64{}, nil
	}

	batch := &pgx.Batch{}
	for _, g := range goods {
		batch.Queue(insertGoodQuery, g.OwnerID, g.Width, g.Height, g.Length, g.Weight)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	ids := make([]int64, 0, len(goods))
	for range goods {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			return nil, fmt.Errorf("insert good: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InsertCalculation inserts a calculation row and returns its id.
func (r *Repo) InsertCalculation(ctx context.Context, calc Calculation) (int64, error) {
	goodIDs := calc.GoodIDs
	if goodIDs == nil {
		goodIDs = []int64{}
	}

	var id int64
	if err := r.db.QueryRow(ctx, insertCalculationQuery,
		calc.OwnerID, goodIDs, calc.TotalVolume, calc.TotalWeight, calc.Price.String(), calc.CreatedAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert calculation: %w", err)
	}
	return id, nil
}

// QueryByOwner lists an owner's calculations, newest first.
func (r *Repo) QueryByOwner(ctx context.Context, params QueryParams) ([]Calculation, error) {
	ids := params.IDs
	if ids == nil {
		// A NULL array would make the cardinality guard NULL and drop every row.
		ids = []int64{}
	}

	rows, err := r.db.Query(ctx, queryByOwnerQuery, params.OwnerID, ids, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	items := make([]Calculation, 0)
	for rows.Next() {
		var (
			c     Calculation
			price string
			at    time.Time
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.GoodIDs, &c.TotalVolume, &c.TotalWeight, &price, &at); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		c.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse calculation price: %w", err)
		}
		c.CreatedAt = at.UTC()
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate calculations: %w", rows.Err())
	}
	return items, nil
}

// QueryRefsByIDs returns the refs of the given ids that exist, regardless of owner.
func (r *Repo) QueryRefsByIDs(ctx context.Context, ids []int64) ([]CalculationRef, error) {
	if len(ids) == 0 {
		return []CalculationRef{}, nil
	}
	return r.queryRefs(ctx, queryRefsByIDsQuery, ids)
}

// QueryRefsByOwner returns every ref owned by ownerID.
func (r *Repo) QueryRefsByOwner(ctx context.Context, ownerID int64) ([]CalculationRef, error) {
	return r.queryRefs(ctx, queryRefsByOwnerQuery, ownerID)
}

func (r *Repo) queryRefs(ctx context.Context, query string, arg any) ([]CalculationRef, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query calculation ids: %w", err)
	}
	refs, err := pgx.CollectRows(rows, pgx.RowToStructByName[CalculationRef])
	if err != nil {
		return nil, fmt.Errorf("collect calculation ids: %w", err)
	}
	return refs, nil
}

// DeleteCascade removes the calculations and the union of their goods atomically.
func (r *Repo) DeleteCascade(ctx context.Context, refs []CalculationRef) error {
	if len(refs) == 0 {
		return nil
	}
	calculationIDs := RefIDs(refs)
	goodIDs := DistinctGoodIDs(refs)

	return r.WithinTx(ctx, func(tx Repository) error {
		q := tx.(*Repo).db
		if _, err := q.Exec(ctx, deleteCalculationsQuery, calculationIDs); err != nil {
			return fmt.Errorf("delete calculations: %w", err)
		}
		if _, err := q.Exec(ctx, deleteGoodsQuery, goodIDs); err != nil {
			return fmt.Errorf("delete goods: %w", err)
		}
		return nil
	})
}

// DeleteOnly removes calculation rows and leaves their goods in place.
func (r *Repo) DeleteOnly(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, deleteCalculationsQuery, ids); err != nil {
		return fmt.Errorf("delete calculations: %w", err)
	}
	return nil
}

// DeleteOrphanGoods removes goods no calculation references any more.
func (r *Repo) DeleteOrphanGoods(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteOrphanGoodsQuery)
	if err != nil {
		return 0, fmt.Errorf("delete orphan goods: %w", err)
	}
	return tag.RowsAffected(), nil
}
