package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/cmd/roster/repository"
	"github.com/lyzr/coffeeroster/common/cache"
	"github.com/lyzr/coffeeroster/common/logger"
	"github.com/stretchr/testify/require"
)

type testServices struct {
	store        repository.Store
	cache        *cache.MemoryCache
	participants *ParticipantService
	purchases    *PurchaseService
	rotation     *RotationService
}

func newTestServices(t *testing.T, store repository.Store, cfg RotationConfig) *testServices {
	t.Helper()
	log := logger.Discard()

	c := cache.NewMemoryCache(log)
	t.Cleanup(func() { _ = c.Close() })

	nb := NewNextBuyerCache(c, time.Minute, log)
	purchases := NewPurchaseService(store, nb, log)
	return &testServices{
		store:        store,
		cache:        c,
		participants: NewParticipantService(store, nb, log),
		purchases:    purchases,
		rotation:     NewRotationService(store, purchases, nb, cfg, log),
	}
}

func newMemoryServices(t *testing.T) *testServices {
	return newTestServices(t, repository.NewMemoryStore(), RotationConfig{SwallowHistoryErrors: true})
}

// seed adds participants in order and returns their ids
func (s *testServices) seed(t *testing.T, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		p, err := s.participants.Add(context.Background(), name)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return ids
}

func (s *testServices) order(t *testing.T) []int64 {
	t.Helper()
	participants, err := s.participants.List(context.Background())
	require.NoError(t, err)
	return models.ParticipantIDs(participants)
}

var errDiskFull = errors.New("disk full")

// brokenHistoryStore fails every reorder history call, inside and outside transactions
type brokenHistoryStore struct {
	repository.Store
}

func (s brokenHistoryStore) History() repository.ReorderHistoryRepository {
	return brokenHistory{}
}

func (s brokenHistoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		return fn(ctx, brokenHistoryRepos{tx})
	})
}

type brokenHistoryRepos struct {
	repository.Repositories
}

func (r brokenHistoryRepos) History() repository.ReorderHistoryRepository {
	return brokenHistory{}
}

type brokenHistory struct{}

func (brokenHistory) Append(ctx context.Context, entry *models.ReorderHistoryEntry) error {
	return errDiskFull
}

func (brokenHistory) PruneKeepLatest(ctx context.Context, keep int) (int64, error) {
	return 0, errDiskFull
}

func (brokenHistory) List(ctx context.Context) ([]*models.ReorderHistoryEntry, error) {
	return nil, errDiskFull
}

// afterCommitStore runs afterCommit once, right after the next transaction commits
type afterCommitStore struct {
	repository.Store
	afterCommit func()
}

func (s *afterCommitStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	if err := s.Store.WithTx(ctx, fn); err != nil {
		return err
	}
	if hook := s.afterCommit; hook != nil {
		s.afterCommit = nil
		hook()
	}
	return nil
}
