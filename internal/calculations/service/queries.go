package service

import (
	"context"

	"delivery_price_calculator/internal/calculations/repository"

	"github.com/shopspring/decimal"
)

// GetHistoryQuery pages through a user's calculations.
type GetHistoryQuery struct {
	UserID         int64
	Take           int
	Skip           int
	CalculationIDs []int64
}

// HistoryItem is one calculation as shown in the history.
type HistoryItem struct {
	TotalVolume float64
	TotalWeight float64
	Price       decimal.Decimal
	GoodIDs     []int64
}

// GetHistoryResult lists history items newest first.
type GetHistoryResult struct {
	Items []HistoryItem
}

// GetHistoryHandler handles GetHistoryQuery.
type GetHistoryHandler struct {
	svc    *Service
	policy DetailPolicy
}

// NewGetHistoryHandler creates a GetHistoryHandler using policy for gate errors.
func NewGetHistoryHandler(svc *Service, policy DetailPolicy) *GetHistoryHandler {
	return &GetHistoryHandler{svc: svc, policy: policy}
}

// Handle runs the query.
func (h *GetHistoryHandler) Handle(ctx context.Context, q GetHistoryQuery) (GetHistoryResult, error) {
	if err := validateOwner(q.UserID); err != nil {
		return GetHistoryResult{}, err
	}

	calcs, err := h.svc.QueryCalculations(ctx, QueryFilter{
		OwnerID: q.UserID,
		Limit:   q.Take,
		Offset:  q.Skip,
		IDs:     q.CalculationIDs,
		Policy:  h.policy,
	})
	if err != nil {
		return GetHistoryResult{}, err
	}

	return GetHistoryResult{Items: toHistoryItems(calcs)}, nil
}

func toHistoryItems(calcs []repository.Calculation) []HistoryItem {
	items := make([]HistoryItem, len(calcs))
	for i, c := range calcs {
		items[i] = HistoryItem{
			TotalVolume: c.TotalVolume,
			TotalWeight: c.TotalWeight,
			Price:       c.Price,
			GoodIDs:     c.GoodIDs,
		}
	}
	return items
}
