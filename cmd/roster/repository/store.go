package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
)

// Repository-level errors. Services translate these into domain errors.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("unique constraint violated")
	ErrForeignKey = errors.New("foreign key violated")
)

// ParticipantRepository persists the roster
type ParticipantRepository interface {
	// List returns participants sorted by order_position, then id
	List(ctx context.Context) ([]*models.Participant, error)
	// LockRoster blocks concurrent roster writers until the transaction ends.
	// Outside a transaction it is a no-op.
	LockRoster(ctx context.Context) error
	GetByID(ctx context.Context, id int64) (*models.Participant, error)
	MaxOrderPosition(ctx context.Context) (int, error)
	Create(ctx context.Context, name string, orderPosition int) (*models.Participant, error)
	UpdateName(ctx context.Context, id int64, name string) (*models.Participant, error)
	SetOrderPosition(ctx context.Context, id int64, orderPosition int) error
	Delete(ctx context.Context, id int64) (*models.Participant, error)
}

// PurchaseRepository persists both purchase ledgers
type PurchaseRepository interface {
	CreateCoffee(ctx context.Context, participantID int64, at time.Time) (*models.CoffeePurchase, error)
	CreateExternal(ctx context.Context, name string, at time.Time) (*models.ExternalPurchase, error)
	ListCoffee(ctx context.Context) ([]*models.CoffeePurchaseWithName, error)
	ListExternal(ctx context.Context) ([]*models.ExternalPurchase, error)
	// Latest returns the newest coffee purchase, or nil when there is none
	Latest(ctx context.Context) (*models.LastPurchase, error)
	CountByParticipant(ctx context.Context, participantID int64) (int64, error)
	Delete(ctx context.Context, kind models.PurchaseKind, id int64) (bool, error)
	Clear(ctx context.Context, kind models.PurchaseKind) (int64, error)
}

// ReorderHistoryRepository persists the reorder audit trail
type ReorderHistoryRepository interface {
	Append(ctx context.Context, entry *models.ReorderHistoryEntry) error
	// PruneKeepLatest deletes every entry older than the keep newest by id
	PruneKeepLatest(ctx context.Context, keep int) (int64, error)
	// List returns entries newest first
	List(ctx context.Context) ([]*models.ReorderHistoryEntry, error)
}

// Repositories groups the repositories bound to one connection or transaction
type Repositories interface {
	Participants() ParticipantRepository
	Purchases() PurchaseRepository
	History() ReorderHistoryRepository
}

// Store is the storage backend. Every logical operation that performs more
// than one read or write goes through WithTx.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
