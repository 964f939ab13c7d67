// Package memory provides an in-memory implementation of the calculations
// repository used for tests and ephemeral environments.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"delivery_price_calculator/internal/calculations/repository"
)

// Compile-time contract assertion.
var _ repository.Repository = (*Store)(nil)

type memoryState struct {
	nextGoodID        int64
	nextCalculationID int64
	goods             map[int64]repository.Good
	calculations      map[int64]repository.Calculation
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		nextGoodID:        s.nextGoodID,
		nextCalculationID: s.nextCalculationID,
		goods:             make(map[int64]repository.Good, len(s.goods)),
		calculations:      make(map[int64]repository.Calculation, len(s.calculations)),
	}
	for id, g := range s.goods {
		out.goods[id] = g
	}
	for id, c := range s.calculations {
		out.calculations[id] = cloneCalculation(c)
	}
	return out
}

func cloneCalculation(c repository.Calculation) repository.Calculation {
	c.GoodIDs = slices.Clone(c.GoodIDs)
	return c
}

// Option configures a Store.
type Option func(*memoryState)

// WithIDStart makes both id sequences start at start instead of 1.
func WithIDStart(start int64) Option {
	return func(s *memoryState) {
		s.nextGoodID = start
		s.nextCalculationID = start
	}
}

// Store keeps goods and calculations in maps. A root store guards its state
// with a mutex. A transaction-bound store works on a private copy that the
// root swaps in on commit.
type Store struct {
	mu    *sync.Mutex
	state *memoryState
}

// New creates an empty store.
func New(opts ...Option) *Store {
	st := &memoryState{
		nextGoodID:        1,
		nextCalculationID: 1,
		goods:             make(map[int64]repository.Good),
		calculations:      make(map[int64]repository.Calculation),
	}
	for _, opt := range opts {
		opt(st)
	}
	return &Store{mu: &sync.Mutex{}, state: st}
}

func (s *Store) inTx() bool { return s.mu == nil }

func (s *Store) lock() {
	if !s.inTx() {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx() {
		s.mu.Unlock()
	}
}

// view runs fn against the state, taking the lock for root stores.
func (s *Store) view(ctx context.Context, fn func(st *memoryState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock()
	defer s.unlock()
	return fn(s.state)
}

// WithinTx serialises transactions: the root lock is held while fn runs on a
// copy, and the copy replaces the state only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repository) error) (err error) {
	if s.inTx() {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// InsertGoods assigns sequential ids in input order.
func (s *Store) InsertGoods(ctx context.Context, goods []repository.Good) ([]int64, error) {
	ids := make([]int64, 0, len(goods))
	err := s.view(ctx, func(st *memoryState) error {
		for _, g := range goods {
			g.ID = st.nextGoodID
			st.nextGoodID++
			st.goods[g.ID] = g
			ids = append(ids, g.ID)
		}
		return nil
	})
	return ids, err
}

// InsertCalculation stores calc under a fresh id.
func (s *Store) InsertCalculation(ctx context.Context, calc repository.Calculation) (int64, error) {
	var id int64
	err := s.view(ctx, func(st *memoryState) error {
		calc = cloneCalculation(calc)
		calc.ID = st.nextCalculationID
		st.nextCalculationID++
		st.calculations[calc.ID] = calc
		id = calc.ID
		return nil
	})
	return id, err
}

// QueryByOwner mirrors the SQL ordering: newest first, then id ascending.
func (s *Store) QueryByOwner(ctx context.Context, params repository.QueryParams) ([]repository.Calculation, error) {
	items := make([]repository.Calculation, 0)
	err := s.view(ctx, func(st *memoryState) error {
		var filter map[int64]struct{}
		if len(params.IDs) > 0 {
			filter = make(map[int64]struct{}, len(params.IDs))
			for _, id := range params.IDs {
				filter[id] = struct{}{}
			}
		}

		matched := make([]repository.Calculation, 0)
		for _, c := range st.calculations {
			if c.OwnerID != params.OwnerID {
				continue
			}
			if filter != nil {
				if _, ok := filter[c.ID]; !ok {
					continue
				}
			}
			matched = append(matched, cloneCalculation(c))
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID < matched[j].ID
		})

		if params.Offset >= len(matched) {
			return nil
		}
		end := params.Offset + params.Limit
		if params.Limit < 0 || end > len(matched) {
			end = len(matched)
		}
		items = append(items, matched[params.Offset:end]...)
		return nil
	})
	return items, err
}

// QueryRefsByIDs returns refs for the ids that exist, in id order.
func (s *Store) QueryRefsByIDs(ctx context.Context, ids []int64) ([]repository.CalculationRef, error) {
	refs := make([]repository.CalculationRef, 0, len(ids))
	err := s.view(ctx, func(st *memoryState) error {
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if c, ok := st.calculations[id]; ok {
				refs = append(refs, toRef(c))
			}
		}
		return nil
	})
	sortRefs(refs)
	return refs, err
}

// QueryRefsByOwner returns every ref owned by ownerID, in id order.
func (s *Store) QueryRefsByOwner(ctx context.Context, ownerID int64) ([]repository.CalculationRef, error) {
	refs := make([]repository.CalculationRef, 0)
	err := s.view(ctx, func(st *memoryState) error {
		for _, c := range st.calculations {
			if c.OwnerID == ownerID {
				refs = append(refs, toRef(c))
			}
		}
		return nil
	})
	sortRefs(refs)
	return refs, err
}

// DeleteCascade removes the calculations and every good they reference.
func (s *Store) DeleteCascade(ctx context.Context, refs []repository.CalculationRef) error {
	if len(refs) == 0 {
		return nil
	}
	return s.view(ctx, func(st *memoryState) error {
		for _, id := range repository.RefIDs(refs) {
			delete(st.calculations, id)
		}
		for _, id := range repository.DistinctGoodIDs(refs) {
			delete(st.goods, id)
		}
		return nil
	})
}

// DeleteOnly removes calculations and leaves their goods behind.
func (s *Store) DeleteOnly(ctx context.Context, ids []int64) error {
	return s.view(ctx, func(st *memoryState) error {
		for _, id := range ids {
			delete(st.calculations, id)
		}
		return nil
	})
}

// DeleteOrphanGoods removes goods no calculation references.
func (s *Store) DeleteOrphanGoods(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.view(ctx, func(st *memoryState) error {
		referenced := make(map[int64]struct{})
		for _, c := range st.calculations {
			for _, id := range c.GoodIDs {
				referenced[id] = struct{}{}
			}
		}
		for id := range st.goods {
			if _, ok := referenced[id]; !ok {
				delete(st.goods, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

// Goods returns a copy of every stored good, in id order.
func (s *Store) Goods() []repository.Good {
	s.lock()
	defer s.unlock()
	out := make([]repository.Good, 0, len(s.state.goods))
	for _, g := range s.state.goods {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Calculations returns a copy of every stored calculation, in id order.
func (s *Store) Calculations() []repository.Calculation {
	s.lock()
	defer s.unlock()
	out := make([]repository.Calculation, 0, len(s.state.calculations))
	for _, c := range s.state.calculations {
		out = append(out, cloneCalculation(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func toRef(c repository.Calculation) repository.CalculationRef {
	return repository.CalculationRef{ID: c.ID, OwnerID: c.OwnerID, GoodIDs: slices.Clone(c.GoodIDs)}
}

func sortRefs(refs []repository.CalculationRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
}
