package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
)

// MemoryStore is an in-process Store for development and tests.
// Transactions copy the whole state, run against the copy under the store
// mutex and swap it in on success, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	participants map[int64]models.Participant
	coffee       map[int64]models.CoffeePurchase
	external     map[int64]models.ExternalPurchase
	history      []models.ReorderHistoryEntry

	nextParticipantID int64
	nextCoffeeID      int64
	nextExternalID    int64
	nextHistoryID     int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			participants: make(map[int64]models.Participant),
			coffee:       make(map[int64]models.CoffeePurchase),
			external:     make(map[int64]models.ExternalPurchase),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		participants:      make(map[int64]models.Participant, len(s.participants)),
		coffee:            make(map[int64]models.CoffeePurchase, len(s.coffee)),
		external:          make(map[int64]models.ExternalPurchase, len(s.external)),
		history:           make([]models.ReorderHistoryEntry, len(s.history)),
		nextParticipantID: s.nextParticipantID,
		nextCoffeeID:      s.nextCoffeeID,
		nextExternalID:    s.nextExternalID,
		nextHistoryID:     s.nextHistoryID,
	}
	for k, v := range s.participants {
		c.participants[k] = v
	}
	for k, v := range s.coffee {
		c.coffee[k] = v
	}
	for k, v := range s.external {
		c.external[k] = v
	}
	// Entries are never mutated in place, but their slices are shared; copy them.
	for i, e := range s.history {
		e.OldOrder = append([]int64(nil), e.OldOrder...)
		e.NewOrder = append([]int64(nil), e.NewOrder...)
		c.history[i] = e
	}
	return c
}

// memRepos implements every repository over one memState. Outside a
// transaction each call takes the store mutex; inside one the mutex is
// already held by WithTx.
type memRepos struct {
	store *MemoryStore
	state *memState
	inTx  bool
}

func (r *memRepos) do(fn func(st *memState) error) error {
	if r.inTx {
		return fn(r.state)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (s *MemoryStore) repos() *memRepos {
	return &memRepos{store: s}
}

// Participants returns a non-transactional participant repository
func (s *MemoryStore) Participants() ParticipantRepository { return s.repos() }

// Purchases returns a non-transactional purchase repository
func (s *MemoryStore) Purchases() PurchaseRepository { return memPurchases{s.repos()} }

// History returns a non-transactional reorder history repository
func (s *MemoryStore) History() ReorderHistoryRepository { return memHistory{s.repos()} }

// WithTx runs fn against a private copy of the state and commits it only if fn succeeds
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &memTx{repos: &memRepos{store: s, state: work, inTx: true}}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type memTx struct {
	repos *memRepos
}

func (t *memTx) Participants() ParticipantRepository { return t.repos }
func (t *memTx) Purchases() PurchaseRepository       { return memPurchases{t.repos} }
func (t *memTx) History() ReorderHistoryRepository   { return memHistory{t.repos} }

// --- participants ---

func sortedParticipants(st *memState) []*models.Participant {
	out := make([]*models.Participant, 0, len(st.participants))
	for _, p := range st.participants {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderPosition != out[j].OrderPosition {
			return out[i].OrderPosition < out[j].OrderPosition
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memRepos) List(ctx context.Context) ([]*models.Participant, error) {
	var out []*models.Participant
	err := r.do(func(st *memState) error {
		out = sortedParticipants(st)
		return nil
	})
	return out, err
}

func (r *memRepos) LockRoster(ctx context.Context) error {
	return nil
}

func (r *memRepos) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	var out *models.Participant
	err := r.do(func(st *memState) error {
		p, ok := st.participants[id]
		if !ok {
			return fmt.Errorf("participant %d: %w", id, ErrNotFound)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *memRepos) MaxOrderPosition(ctx context.Context) (int, error) {
	maxPos := 0
	err := r.do(func(st *memState) error {
		for _, p := range st.participants {
			if p.OrderPosition > maxPos {
				maxPos = p.OrderPosition
			}
		}
		return nil
	})
	return maxPos, err
}

func nameTaken(st *memState, name string, except int64) bool {
	for _, p := range st.participants {
		if p.Name == name && p.ID != except {
			return true
		}
	}
	return false
}

func (r *memRepos) Create(ctx context.Context, name string, orderPosition int) (*models.Participant, error) {
	var out *models.Participant
	err := r.do(func(st *memState) error {
		if nameTaken(st, name, 0) {
			return fmt.Errorf("%w: participants_name_key", ErrDuplicate)
		}
		st.nextParticipantID++
		p := models.Participant{
			ID:            st.nextParticipantID,
			Name:          name,
			CreatedAt:     r.store.now(),
			OrderPosition: orderPosition,
		}
		st.participants[p.ID] = p
		out = &p
		return nil
	})
	return out, err
}

func (r *memRepos) UpdateName(ctx context.Context, id int64, name string) (*models.Participant, error) {
	var out *models.Participant
	err := r.do(func(st *memState) error {
		p, ok := st.participants[id]
		if !ok {
			return fmt.Errorf("participant %d: %w", id, ErrNotFound)
		}
		if nameTaken(st, name, id) {
			return fmt.Errorf("%w: participants_name_key", ErrDuplicate)
		}
		p.Name = name
		st.participants[id] = p
		out = &p
		return nil
	})
	return out, err
}

func (r *memRepos) SetOrderPosition(ctx context.Context, id int64, orderPosition int) error {
	return r.do(func(st *memState) error {
		p, ok := st.participants[id]
		if !ok {
			return fmt.Errorf("participant %d: %w", id, ErrNotFound)
		}
		p.OrderPosition = orderPosition
		st.participants[id] = p
		return nil
	})
}

func (r *memRepos) Delete(ctx context.Context, id int64) (*models.Participant, error) {
	var out *models.Participant
	err := r.do(func(st *memState) error {
		p, ok := st.participants[id]
		if !ok {
			return fmt.Errorf("participant %d: %w", id, ErrNotFound)
		}
		for _, c := range st.coffee {
			if c.ParticipantID == id {
				return fmt.Errorf("%w: coffee_purchases_participant_id_fkey", ErrForeignKey)
			}
		}
		delete(st.participants, id)
		out = &p
		return nil
	})
	return out, err
}

// --- purchases ---

type memPurchases struct {
	*memRepos
}

func (r memPurchases) CreateCoffee(ctx context.Context, participantID int64, at time.Time) (*models.CoffeePurchase, error) {
	var out *models.CoffeePurchase
	err := r.do(func(st *memState) error {
		if _, ok := st.participants[participantID]; !ok {
			return fmt.Errorf("%w: coffee_purchases_participant_id_fkey", ErrForeignKey)
		}
		st.nextCoffeeID++
		p := models.CoffeePurchase{ID: st.nextCoffeeID, ParticipantID: participantID, PurchaseDate: at}
		st.coffee[p.ID] = p
		out = &p
		return nil
	})
	return out, err
}

func (r memPurchases) CreateExternal(ctx context.Context, name string, at time.Time) (*models.ExternalPurchase, error) {
	var out *models.ExternalPurchase
	err := r.do(func(st *memState) error {
		st.nextExternalID++
		p := models.ExternalPurchase{ID: st.nextExternalID, Name: name, PurchaseDate: at}
		st.external[p.ID] = p
		out = &p
		return nil
	})
	return out, err
}

func newestFirst(ti, tj time.Time, idi, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}

func (r memPurchases) ListCoffee(ctx context.Context) ([]*models.CoffeePurchaseWithName, error) {
	var out []*models.CoffeePurchaseWithName
	err := r.do(func(st *memState) error {
		out = make([]*models.CoffeePurchaseWithName, 0, len(st.coffee))
		for _, c := range st.coffee {
			p, ok := st.participants[c.ParticipantID]
			if !ok {
				continue
			}
			out = append(out, &models.CoffeePurchaseWithName{CoffeePurchase: c, Name: p.Name})
		}
		sort.Slice(out, func(i, j int) bool {
			return newestFirst(out[i].PurchaseDate, out[j].PurchaseDate, out[i].ID, out[j].ID)
		})
		return nil
	})
	return out, err
}

func (r memPurchases) ListExternal(ctx context.Context) ([]*models.ExternalPurchase, error) {
	var out []*models.ExternalPurchase
	err := r.do(func(st *memState) error {
		out = make([]*models.ExternalPurchase, 0, len(st.external))
		for _, e := range st.external {
			e := e
			out = append(out, &e)
		}
		sort.Slice(out, func(i, j int) bool {
			return newestFirst(out[i].PurchaseDate, out[j].PurchaseDate, out[i].ID, out[j].ID)
		})
		return nil
	})
	return out, err
}

func (r memPurchases) Latest(ctx context.Context) (*models.LastPurchase, error) {
	coffee, err := r.ListCoffee(ctx)
	if err != nil || len(coffee) == 0 {
		return nil, err
	}
	c := coffee[0]
	return &models.LastPurchase{ParticipantID: c.ParticipantID, Name: c.Name, PurchaseDate: c.PurchaseDate}, nil
}

func (r memPurchases) CountByParticipant(ctx context.Context, participantID int64) (int64, error) {
	var n int64
	err := r.do(func(st *memState) error {
		for _, c := range st.coffee {
			if c.ParticipantID == participantID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memPurchases) Delete(ctx context.Context, kind models.PurchaseKind, id int64) (bool, error) {
	var deleted bool
	err := r.do(func(st *memState) error {
		switch kind {
		case models.PurchaseKindCoffee:
			_, deleted = st.coffee[id]
			delete(st.coffee, id)
		case models.PurchaseKindExternal:
			_, deleted = st.external[id]
			delete(st.external, id)
		default:
			return fmt.Errorf("unknown purchase kind %q", kind)
		}
		return nil
	})
	return deleted, err
}

func (r memPurchases) Clear(ctx context.Context, kind models.PurchaseKind) (int64, error) {
	var n int64
	err := r.do(func(st *memState) error {
		switch kind {
		case models.PurchaseKindCoffee:
			n = int64(len(st.coffee))
			st.coffee = make(map[int64]models.CoffeePurchase)
		case models.PurchaseKindExternal:
			n = int64(len(st.external))
			st.external = make(map[int64]models.ExternalPurchase)
		default:
			return fmt.Errorf("unknown purchase kind %q", kind)
		}
		return nil
	})
	return n, err
}

// --- reorder history ---

type memHistory struct {
	*memRepos
}

func (r memHistory) Append(ctx context.Context, entry *models.ReorderHistoryEntry) error {
	return r.do(func(st *memState) error {
		st.nextHistoryID++
		entry.ID = st.nextHistoryID
		stored := *entry
		stored.OldOrder = append([]int64(nil), entry.OldOrder...)
		stored.NewOrder = append([]int64(nil), entry.NewOrder...)
		st.history = append(st.history, stored)
		return nil
	})
}

func (r memHistory) PruneKeepLatest(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be positive, got %d", keep)
	}
	var removed int64
	err := r.do(func(st *memState) error {
		if len(st.history) <= keep {
			return nil
		}
		ids := make([]int64, len(st.history))
		for i, e := range st.history {
			ids[i] = e.ID
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
		cutoff := ids[keep-1]

		kept := st.history[:0]
		for _, e := range st.history {
			if e.ID < cutoff {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		st.history = kept
		return nil
	})
	return removed, err
}

func (r memHistory) List(ctx context.Context) ([]*models.ReorderHistoryEntry, error) {
	var out []*models.ReorderHistoryEntry
	err := r.do(func(st *memState) error {
		out = make([]*models.ReorderHistoryEntry, 0, len(st.history))
		for i := len(st.history) - 1; i >= 0; i-- {
			e := st.history[i]
			e.OldOrder = append([]int64(nil), e.OldOrder...)
			e.NewOrder = append([]int64(nil), e.NewOrder...)
			out = append(out, &e)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}
