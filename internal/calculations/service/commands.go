package service

import (
	"context"
	"fmt"

	"delivery_price_calculator/platform/apperr"
	"delivery_price_calculator/platform/config"

	"github.com/shopspring/decimal"
)

// Policies holds the detail policy of each id-scoped call site.
type Policies struct {
	Query DetailPolicy
	Clear DetailPolicy
}

// DefaultPolicies returns the policies used when nothing is configured.
func DefaultPolicies() Policies {
	return Policies{Query: DefaultQueryPolicy, Clear: DefaultClearPolicy}
}

// PoliciesFromConfig builds per call site policies from configuration.
func PoliciesFromConfig(cfg config.HistoryConfig) Policies {
	return Policies{
		Query: DetailPolicy{
			RevealMissing: cfg.GetQueryRevealIDs(),
			RevealForeign: cfg.GetQueryRevealIDs(),
		},
		Clear: DetailPolicy{
			RevealMissing: cfg.GetClearRevealMissingIDs(),
			RevealForeign: cfg.GetClearRevealForeignIDs(),
		},
	}
}

// CalculatePriceCommand prices goods for a user and records the calculation.
type CalculatePriceCommand struct {
	UserID int64
	Goods  []GoodMeasure
}

// CalculatePriceResult is the saved calculation id and its price.
type CalculatePriceResult struct {
	CalculationID int64
	Price         decimal.Decimal
}

// CalculatePriceHandler handles CalculatePriceCommand.
type CalculatePriceHandler struct {
	svc *Service
}

// NewCalculatePriceHandler creates a CalculatePriceHandler.
func NewCalculatePriceHandler(svc *Service) *CalculatePriceHandler {
	return &CalculatePriceHandler{svc: svc}
}

// Handle prices cmd.Goods by both models, charges the higher one and saves it.
func (h *CalculatePriceHandler) Handle(ctx context.Context, cmd CalculatePriceCommand) (CalculatePriceResult, error) {
	if err := validateOwner(cmd.UserID); err != nil {
		return CalculatePriceResult{}, err
	}
	if len(cmd.Goods) == 0 {
		return CalculatePriceResult{}, apperr.Validation("at least one good is required")
	}
	for i, g := range cmd.Goods {
		if g.Height < 0 || g.Width < 0 || g.Length < 0 || g.Weight < 0 {
			return CalculatePriceResult{}, apperr.Validation(fmt.Sprintf("good %d has a negative measurement", i))
		}
	}

	quote := CalculatePrice(cmd.Goods)
	id, err := h.svc.SaveCalculation(ctx, SaveCalculationParams{
		OwnerID:     cmd.UserID,
		Goods:       cmd.Goods,
		TotalVolume: quote.TotalVolume,
		TotalWeight: quote.TotalWeight,
		Price:       quote.Price,
	})
	if err != nil {
		return CalculatePriceResult{}, err
	}
	return CalculatePriceResult{CalculationID: id, Price: quote.Price}, nil
}

// ClearHistoryCommand removes some or all of a user's history.
type ClearHistoryCommand struct {
	UserID         int64
	CalculationIDs []int64
}

// ClearHistoryHandler handles ClearHistoryCommand.
type ClearHistoryHandler struct {
	svc    *Service
	policy DetailPolicy
}

// NewClearHistoryHandler creates a ClearHistoryHandler using policy for gate errors.
func NewClearHistoryHandler(svc *Service, policy DetailPolicy) *ClearHistoryHandler {
	return &ClearHistoryHandler{svc: svc, policy: policy}
}

// Handle cascades the delete to the goods of every removed calculation.
func (h *ClearHistoryHandler) Handle(ctx context.Context, cmd ClearHistoryCommand) (ClearResult, error) {
	if err := validateOwner(cmd.UserID); err != nil {
		return ClearResult{}, err
	}
	return h.svc.ClearHistory(ctx, ClearParams{
		OwnerID: cmd.UserID,
		IDs:     cmd.CalculationIDs,
		Policy:  h.policy,
	})
}

func validateOwner(userID int64) error {
	if userID <= 0 {
		return apperr.Validation("userId must be positive")
	}
	return nil
}
