package service

import (
	"context"
	"reflect"
	"testing"

	"delivery_price_calculator/platform/apperr"

	"github.com/shopspring/decimal"
)

type historyConfigStub struct {
	query, clearMissing, clearForeign bool
}

func (c historyConfigStub) GetQueryRevealIDs() bool        { return c.query }
func (c historyConfigStub) GetClearRevealMissingIDs() bool { return c.clearMissing }
func (c historyConfigStub) GetClearRevealForeignIDs() bool { return c.clearForeign }

func TestCalculatePriceHandler_SavesTheHigherPrice(t *testing.T) {
	store := newMemory()
	h := NewCalculatePriceHandler(newTestService(store))

	res, err := h.Handle(context.Background(), CalculatePriceCommand{
		UserID: 3,
		Goods:  []GoodMeasure{{Height: 2, Width: 2, Length: 2, Weight: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Price.Equal(decimal.RequireFromString("26.16")) {
		t.Fatalf("expected price 26.16, got %s", res.Price)
	}

	calcs := store.Calculations()
	if len(calcs) != 1 || calcs[0].ID != res.CalculationID {
		t.Fatalf("expected saved calculation %d, got %+v", res.CalculationID, calcs)
	}
	if calcs[0].TotalVolume != 8 || calcs[0].TotalWeight != 1 {
		t.Fatalf("expected totals 8/1, got %v/%v", calcs[0].TotalVolume, calcs[0].TotalWeight)
	}
}

func TestCalculatePriceHandler_Validation(t *testing.T) {
	h := NewCalculatePriceHandler(newTestService(newMemory()))

	cases := map[string]CalculatePriceCommand{
		"no goods":      {UserID: 1},
		"bad user":      {UserID: 0, Goods: []GoodMeasure{{Weight: 1}}},
		"negative good": {UserID: 1, Goods: []GoodMeasure{{Weight: -1}}},
	}
	for name, cmd := range cases {
		if _, err := h.Handle(context.Background(), cmd); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestGetHistoryHandler_MapsItems(t *testing.T) {
	svc := newTestService(newMemory())
	calc := NewCalculatePriceHandler(svc)
	first, err := calc.Handle(context.Background(), CalculatePriceCommand{UserID: 1, Goods: []GoodMeasure{{Weight: 10}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := calc.Handle(context.Background(), CalculatePriceCommand{UserID: 1, Goods: []GoodMeasure{{Weight: 2}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := NewGetHistoryHandler(svc, DefaultQueryPolicy)
	res, err := h.Handle(context.Background(), GetHistoryQuery{UserID: 1, Take: 1, Skip: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(res.Items))
	}
	item := res.Items[0]
	if item.TotalWeight != 10 || !item.Price.Equal(first.Price) || len(item.GoodIDs) != 1 {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestGetHistoryHandler_DefaultPolicyHidesIDs(t *testing.T) {
	svc := newTestService(newMemory())
	theirs := saveN(t, svc, 2, 1)
	h := NewGetHistoryHandler(svc, DefaultQueryPolicy)

	_, err := h.Handle(context.Background(), GetHistoryQuery{UserID: 1, CalculationIDs: theirs})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got := detailIDs(t, err, ForeignIDsDetail); len(got) != 0 {
		t.Fatalf("expected hidden ids, got %v", got)
	}
}

func TestClearHistoryHandler_UsesPolicy(t *testing.T) {
	svc := newTestService(newMemory())
	mine := saveN(t, svc, 1, 1)

	hidden := NewClearHistoryHandler(svc, DefaultClearPolicy)
	_, err := hidden.Handle(context.Background(), ClearHistoryCommand{UserID: 1, CalculationIDs: []int64{mine[0], 77}})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := detailIDs(t, err, MissingIDsDetail); got != nil {
		t.Fatalf("expected missing ids hidden, got %v", got)
	}

	revealing := NewClearHistoryHandler(svc, DetailPolicy{RevealMissing: true})
	_, err = revealing.Handle(context.Background(), ClearHistoryCommand{UserID: 1, CalculationIDs: []int64{mine[0], 77}})
	if got := detailIDs(t, err, MissingIDsDetail); !reflect.DeepEqual(got, []int64{77}) {
		t.Fatalf("expected missing ids [77], got %v", got)
	}

	res, err := hidden.Handle(context.Background(), ClearHistoryCommand{UserID: 1, CalculationIDs: mine})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.CalculationIDs, mine) {
		t.Fatalf("expected removed %v, got %v", mine, res.CalculationIDs)
	}
}

func TestPoliciesFromConfig(t *testing.T) {
	got := PoliciesFromConfig(historyConfigStub{query: true, clearForeign: true})
	want := Policies{
		Query: DetailPolicy{RevealMissing: true, RevealForeign: true},
		Clear: DetailPolicy{RevealForeign: true},
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if DefaultPolicies() != (Policies{Query: DefaultQueryPolicy, Clear: DefaultClearPolicy}) {
		t.Fatal("unexpected default policies")
	}
}
