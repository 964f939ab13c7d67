package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery_price_calculator/internal/calculations/repository"

	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store, owner int64, at time.Time, goods int) int64 {
	t.Helper()
	ctx := context.Background()

	batch := make([]repository.Good, goods)
	for i := range batch {
		batch[i] = repository.Good{OwnerID: owner, Height: 1, Width: 1, Length: 1, Weight: 1}
	}
	goodIDs, err := s.InsertGoods(ctx, batch)
	if err != nil {
		t.Fatalf("insert goods: %v", err)
	}
	id, err := s.InsertCalculation(ctx, repository.Calculation{
		OwnerID:   owner,
		GoodIDs:   goodIDs,
		Price:     decimal.RequireFromString("1.5"),
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("insert calculation: %v", err)
	}
	return id
}

func TestInsertGoodsAssignsSequentialIDs(t *testing.T) {
	s := New(WithIDStart(100))

	ids, err := s.InsertGoods(context.Background(), []repository.Good{{OwnerID: 1}, {OwnerID: 1}, {OwnerID: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 100 || ids[2] != 102 {
		t.Fatalf("expected [100 101 102], got %v", ids)
	}
}

func TestQueryByOwnerOrdersNewestFirstThenByID(t *testing.T) {
	s := New()
	older := seed(t, s, 1, baseTime, 1)
	tieA := seed(t, s, 1, baseTime.Add(time.Minute), 1)
	tieB := seed(t, s, 1, baseTime.Add(time.Minute), 1)
	seed(t, s, 2, baseTime.Add(time.Hour), 1)

	got, err := s.QueryByOwner(context.Background(), repository.QueryParams{OwnerID: 1, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{tieA, tieB, older}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, got[i].ID)
		}
	}
}

func TestQueryByOwnerPagination(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		seed(t, s, 1, baseTime.Add(time.Duration(i)*time.Minute), 1)
	}

	cases := []struct {
		take, skip, expected int
	}{
		{3, 2, 3},
		{1, 6, 1},
		{2, 8, 2},
		{3, 10, 0},
		{5, 8, 2},
		{0, 0, 0},
		{0, 4, 0},
		{20, 0, 10},
	}
	for _, tc := range cases {
		got, err := s.QueryByOwner(context.Background(), repository.QueryParams{OwnerID: 1, Limit: tc.take, Offset: tc.skip})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != tc.expected {
			t.Fatalf("take=%d skip=%d: expected %d rows, got %d", tc.take, tc.skip, tc.expected, len(got))
		}
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(tx repository.Repository) error {
		if _, err := tx.InsertGoods(context.Background(), []repository.Good{{OwnerID: 1}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := len(s.Goods()); n != 0 {
		t.Fatalf("expected rollback to discard goods, found %d", n)
	}

	// Sequences roll back with the data.
	ids, _ := s.InsertGoods(context.Background(), []repository.Good{{OwnerID: 1}})
	if ids[0] != 1 {
		t.Fatalf("expected id 1 after rollback, got %d", ids[0])
	}
}

func TestWithinTxRollsBackOnCancellation(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithinTx(ctx, func(tx repository.Repository) error {
		if _, err := tx.InsertGoods(ctx, []repository.Good{{OwnerID: 1}}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(s.Goods()); n != 0 {
		t.Fatalf("expected no goods after cancelled transaction, found %d", n)
	}
}

func TestDeleteCascadeLeavesUnrelatedRows(t *testing.T) {
	s := New()
	a := seed(t, s, 1, baseTime, 2)
	b := seed(t, s, 1, baseTime, 1)
	c := seed(t, s, 2, baseTime, 3)

	refs, err := s.QueryRefsByIDs(context.Background(), []int64{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DeleteCascade(context.Background(), refs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calcs := s.Calculations()
	if len(calcs) != 2 || calcs[0].ID != b || calcs[1].ID != c {
		t.Fatalf("expected calculations [%d %d] to survive, got %+v", b, c, calcs)
	}
	if n := len(s.Goods()); n != 4 {
		t.Fatalf("expected 4 goods to survive, got %d", n)
	}
}

func TestDeleteOnlyThenOrphanSweep(t *testing.T) {
	s := New()
	a := seed(t, s, 1, baseTime, 2)
	seed(t, s, 1, baseTime, 1)

	if err := s.DeleteOnly(context.Background(), []int64{a}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(s.Goods()); n != 3 {
		t.Fatalf("delete-only must keep goods, got %d", n)
	}

	deleted, err := s.DeleteOrphanGoods(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 || len(s.Goods()) != 1 {
		t.Fatalf("expected 2 orphans swept and 1 good left, got deleted=%d left=%d", deleted, len(s.Goods()))
	}
}

func TestQueryRefsByIDsSkipsMissingAndDuplicates(t *testing.T) {
	s := New()
	a := seed(t, s, 1, baseTime, 1)
	b := seed(t, s, 2, baseTime, 1)

	refs, err := s.QueryRefsByIDs(context.Background(), []int64{b, a, a, 999})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 || refs[0].ID != a || refs[1].ID != b || refs[1].OwnerID != 2 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	s := New()
	id := seed(t, s, 1, baseTime, 2)

	got, _ := s.QueryByOwner(context.Background(), repository.QueryParams{OwnerID: 1, Limit: 1})
	got[0].GoodIDs[0] = -1

	refs, _ := s.QueryRefsByIDs(context.Background(), []int64{id})
	if refs[0].GoodIDs[0] == -1 {
		t.Fatal("mutating a query result must not change stored state")
	}
}
