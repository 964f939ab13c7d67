package transport

import (
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// GoodRequest is the measurement of a single parcel.
type GoodRequest struct {
	Height float64 `json:"height" validate:"gte=0"`
	Width  float64 `json:"width" validate:"gte=0"`
	Length float64 `json:"length" validate:"gte=0"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

// CalculateRequest is the request body for pricing and saving a calculation.
// UserID may be omitted when the caller is authenticated.
type CalculateRequest struct {
	UserID int64         `json:"userId" validate:"gte=0"`
	Goods  []GoodRequest `json:"goods" validate:"required,min=1,max=1000,dive"`
}

// DefaultHistoryTake is the page size used when a history request omits take.
const DefaultHistoryTake = 100

// GetHistoryRequest is the request body for listing history.
type GetHistoryRequest struct {
	UserID         int64   `json:"userId" validate:"gte=0"`
	Take           *int    `json:"take" validate:"omitempty,gte=0,lte=1000"`
	Skip           int     `json:"skip" validate:"gte=0"`
	CalculationIDs []int64 `json:"calculationIds" validate:"omitempty,max=1000,dive,gt=0"`
}

// ClearHistoryRequest is the request body for clearing history.
type ClearHistoryRequest struct {
	UserID         int64   `json:"userId" validate:"gte=0"`
	CalculationIDs []int64 `json:"calculationIds" validate:"omitempty,max=1000,dive,gt=0"`
}

// PurgeCalculationsRequest is the admin request removing calculation rows only.
type PurgeCalculationsRequest struct {
	CalculationIDs []int64 `json:"calculationIds" validate:"required,min=1,max=1000,dive,gt=0"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// CalculateResponse is returned after a calculation is saved.
type CalculateResponse struct {
	CalculationID int64           `json:"calculationId"`
	Price         decimal.Decimal `json:"price"`
}

// CargoResponse summarises the goods of one calculation.
type CargoResponse struct {
	Volume  float64 `json:"volume"`
	Weight  float64 `json:"weight"`
	GoodIDs []int64 `json:"goodIds"`
}

// HistoryItemResponse is one history entry.
type HistoryItemResponse struct {
	Cargo CargoResponse   `json:"cargo"`
	Price decimal.Decimal `json:"price"`
}

// GetHistoryResponse lists history entries, newest first.
type GetHistoryResponse struct {
	Items []HistoryItemResponse `json:"items"`
}

// ClearHistoryResponse reports what a clear removed.
type ClearHistoryResponse struct {
	RemovedCalculations []int64 `json:"removedCalculations"`
	RemovedGoods        []int64 `json:"removedGoods"`
}

// PurgeCalculationsResponse acknowledges an admin purge.
type PurgeCalculationsResponse struct {
	Purged []int64 `json:"purged"`
}
