package service

import (
	"context"
	"fmt"

	"delivery_price_calculator/internal/calculations/repository"
	"delivery_price_calculator/platform/apperr"
)

const (
	// MissingIDsDetail is the details key listing requested ids that do not exist.
	MissingIDsDetail = "missingCalculationIds"
	// ForeignIDsDetail is the details key listing ids owned by another user.
	ForeignIDsDetail = "wrongCalculationIds"
)

// DetailPolicy decides which offending ids a call site is allowed to echo back.
type DetailPolicy struct {
	RevealMissing bool
	RevealForeign bool
}

var (
	// DefaultQueryPolicy hides ids in both outcomes.
	DefaultQueryPolicy = DetailPolicy{}
	// DefaultClearPolicy hides missing ids but names the foreign ones.
	DefaultClearPolicy = DetailPolicy{RevealForeign: true}
)

// Gate checks that every requested calculation exists and belongs to the owner.
type Gate struct{}

// Resolve returns the refs for ids after the existence and ownership checks.
// Empty ids means "the whole history" and is returned as (nil, nil) without
// touching the store. Both checks read the result of a single query.
func (Gate) Resolve(ctx context.Context, repo repository.Repository, ids []int64, ownerID int64, policy DetailPolicy) ([]repository.CalculationRef, error) {
	requested := uniqueIDs(ids)
	if len(requested) == 0 {
		return nil, nil
	}

	refs, err := repo.QueryRefsByIDs(ctx, requested)
	if err != nil {
		return nil, fmt.Errorf("query calculation refs: %w", err)
	}

	existing := make(map[int64]repository.CalculationRef, len(refs))
	for _, ref := range refs {
		existing[ref.ID] = ref
	}

	missing := make([]int64, 0)
	for _, id := range requested {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		e := apperr.NotFound("calculations not found").WithOp("gate.Resolve")
		if policy.RevealMissing {
			e = e.WithDetails(map[string][]int64{MissingIDsDetail: missing})
		}
		return nil, e
	}

	foreign := make([]int64, 0)
	owned := make([]repository.CalculationRef, 0, len(requested))
	for _, id := range requested {
		ref := existing[id]
		if ref.OwnerID != ownerID {
			foreign = append(foreign, id)
			continue
		}
		owned = append(owned, ref)
	}
	if len(foreign) > 0 {
		shown := []int64{}
		if policy.RevealForeign {
			shown = foreign
		}
		return nil, apperr.Forbidden("calculations belong to another user").
			WithOp("gate.Resolve").
			WithDetails(map[string][]int64{ForeignIDsDetail: shown})
	}

	return owned, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
