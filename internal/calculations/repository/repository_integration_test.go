package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"delivery_price_calculator/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type databaseURL string

func (u databaseURL) GetDatabaseURL() string { return string(u) }

func newIntegrationRepo(t *testing.T) (*Repo, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, databaseURL(dsn))
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return New(pool), pool
}

// uniqueOwner keeps runs against a shared database apart.
func uniqueOwner(offset int64) int64 {
	return time.Now().UnixNano()%1_000_000_000_000 + offset
}

func saveCalculation(t *testing.T, repo Repository, owner int64, at time.Time, price string, weights ...float64) CalculationRef {
	t.Helper()
	ctx := context.Background()

	var ref CalculationRef
	err := repo.WithinTx(ctx, func(tx Repository) error {
		goods := make([]Good, 0, len(weights))
		var total float64
		for _, w := range weights {
			goods = append(goods, Good{OwnerID: owner, Height: 1, Width: 1, Length: 1, Weight: w})
			total += w
		}
		goodIDs, err := tx.InsertGoods(ctx, goods)
		if err != nil {
			return err
		}
		id, err := tx.InsertCalculation(ctx, Calculation{
			OwnerID:     owner,
			GoodIDs:     goodIDs,
			TotalVolume: float64(len(goods)),
			TotalWeight: total,
			Price:       decimal.RequireFromString(price),
			CreatedAt:   at,
		})
		ref = CalculationRef{ID: id, OwnerID: owner, GoodIDs: goodIDs}
		return err
	})
	if err != nil {
		t.Fatalf("save calculation: %v", err)
	}
	return ref
}

func countGoods(t *testing.T, pool *pgxpool.Pool, ids []int64) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM goods WHERE id = ANY($1::bigint[])`, ids).Scan(&n); err != nil {
		t.Fatalf("count goods: %v", err)
	}
	return n
}

func TestRepoIntegration_QueryByOwner(t *testing.T) {
	repo, _ := newIntegrationRepo(t)
	ctx := context.Background()
	owner, other := uniqueOwner(0), uniqueOwner(1)
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := saveCalculation(t, repo, owner, base, "9.54543", 7.123456)
	newer := saveCalculation(t, repo, owner, base.Add(time.Second), "3.27", 1, 2)
	foreign := saveCalculation(t, repo, other, base, "1", 1)
	t.Cleanup(func() { _ = repo.DeleteCascade(ctx, []CalculationRef{older, newer, foreign}) })

	all, err := repo.QueryByOwner(ctx, QueryParams{OwnerID: owner, Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID || all[1].ID != older.ID {
		t.Fatalf("expected [%d %d], got %+v", newer.ID, older.ID, all)
	}
	if !all[1].Price.Equal(decimal.RequireFromString("9.54543")) {
		t.Fatalf("expected stored price 9.54543, got %s", all[1].Price)
	}
	if len(all[0].GoodIDs) != 2 {
		t.Fatalf("expected 2 good ids, got %v", all[0].GoodIDs)
	}

	filtered, err := repo.QueryByOwner(ctx, QueryParams{OwnerID: owner, Limit: 10, IDs: []int64{older.ID, foreign.ID}})
	if err != nil {
		t.Fatalf("query filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != older.ID {
		t.Fatalf("expected only %d, got %+v", older.ID, filtered)
	}

	empty, err := repo.QueryByOwner(ctx, QueryParams{OwnerID: owner, Limit: 0})
	if err != nil {
		t.Fatalf("query zero limit: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %+v", empty)
	}
}

func TestRepoIntegration_QueryRefsByIDs(t *testing.T) {
	repo, _ := newIntegrationRepo(t)
	ctx := context.Background()
	owner, other := uniqueOwner(2), uniqueOwner(3)

	mine := saveCalculation(t, repo, owner, time.Now().UTC(), "1", 1, 2)
	theirs := saveCalculation(t, repo, other, time.Now().UTC(), "1", 3)
	t.Cleanup(func() { _ = repo.DeleteCascade(ctx, []CalculationRef{mine, theirs}) })

	refs, err := repo.QueryRefsByIDs(ctx, []int64{mine.ID, theirs.ID, -1})
	if err != nil {
		t.Fatalf("query refs: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %+v", refs)
	}
	byID := map[int64]CalculationRef{refs[0].ID: refs[0], refs[1].ID: refs[1]}
	if got := byID[mine.ID]; got.OwnerID != owner || len(got.GoodIDs) != 2 {
		t.Fatalf("unexpected ref for own calculation: %+v", got)
	}
	if got := byID[theirs.ID]; got.OwnerID != other || len(got.GoodIDs) != 1 {
		t.Fatalf("unexpected ref for foreign calculation: %+v", got)
	}
}

func TestRepoIntegration_DeleteCascadeReusesOuterTx(t *testing.T) {
	repo, pool := newIntegrationRepo(t)
	ctx := context.Background()
	owner := uniqueOwner(4)

	ref := saveCalculation(t, repo, owner, time.Now().UTC(), "1", 1, 2)

	errAbort := errors.New("abort")
	err := repo.WithinTx(ctx, func(tx Repository) error {
		if err := tx.DeleteCascade(ctx, []CalculationRef{ref}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}
	if n := countGoods(t, pool, ref.GoodIDs); n != 2 {
		t.Fatalf("expected goods to survive rollback, got %d", n)
	}

	err = repo.WithinTx(ctx, func(tx Repository) error {
		return tx.DeleteCascade(ctx, []CalculationRef{ref})
	})
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}
	refs, err := repo.QueryRefsByIDs(ctx, []int64{ref.ID})
	if err != nil {
		t.Fatalf("query refs: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected calculation removed, got %+v", refs)
	}
	if n := countGoods(t, pool, ref.GoodIDs); n != 0 {
		t.Fatalf("expected goods removed, got %d", n)
	}
}
