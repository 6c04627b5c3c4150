package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/cmd/roster/repository"
	"github.com/lyzr/coffeeroster/common/logger"
)

// Client-facing messages
const (
	MsgBuyerNameRequired   = "Buyer name is required"
	MsgInvalidPurchaseType = "Invalid purchase type specified. Must be \"coffee\" or \"external\"."
)

// PurchaseService records and lists purchases
type PurchaseService struct {
	store     repository.Store
	nextBuyer *NextBuyerCache
	log       *logger.Logger
	now       func() time.Time
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(store repository.Store, nb *NextBuyerCache, log *logger.Logger) *PurchaseService {
	return &PurchaseService{
		store:     store,
		nextBuyer: nb,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordParticipantPurchase records a coffee purchase by a roster member
func (s *PurchaseService) RecordParticipantPurchase(ctx context.Context, participantID int64) (*models.CoffeePurchase, error) {
	var purchase *models.CoffeePurchase
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		purchase, err = recordCoffee(ctx, tx, participantID, s.now())
		return err
	})
	if err != nil {
		return nil, purchaseErr("record purchase", err)
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("recorded coffee purchase", "purchase_id", purchase.ID, "participant_id", participantID)
	return purchase, nil
}

func recordCoffee(ctx context.Context, tx repository.Repositories, participantID int64, at time.Time) (*models.CoffeePurchase, error) {
	if _, err := tx.Participants().GetByID(ctx, participantID); err != nil {
		return nil, err
	}
	return tx.Purchases().CreateCoffee(ctx, participantID, at)
}

// RecordExternalPurchase records a purchase by someone outside the roster.
// It does not move the rotation.
func (s *PurchaseService) RecordExternalPurchase(ctx context.Context, name string) (*models.ExternalPurchase, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: MsgBuyerNameRequired}
	}

	purchase, err := s.store.Purchases().CreateExternal(ctx, name, s.now())
	if err != nil {
		return nil, storageErr("record external purchase", err)
	}

	s.log.Info("recorded external purchase", "purchase_id", purchase.ID)
	return purchase, nil
}

// ListAll merges coffee and external purchases, newest first
func (s *PurchaseService) ListAll(ctx context.Context) ([]*models.UnifiedPurchase, error) {
	var (
		coffee   []*models.CoffeePurchaseWithName
		external []*models.ExternalPurchase
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		if coffee, err = tx.Purchases().ListCoffee(ctx); err != nil {
			return err
		}
		external, err = tx.Purchases().ListExternal(ctx)
		return err
	})
	if err != nil {
		return nil, storageErr("list purchases", err)
	}

	return mergePurchases(coffee, external), nil
}

func mergePurchases(coffee []*models.CoffeePurchaseWithName, external []*models.ExternalPurchase) []*models.UnifiedPurchase {
	out := make([]*models.UnifiedPurchase, 0, len(coffee)+len(external))
	for _, c := range coffee {
		participantID := c.ParticipantID
		out = append(out, &models.UnifiedPurchase{
			ID:            c.ID,
			Name:          c.Name,
			PurchaseDate:  c.PurchaseDate,
			ParticipantID: &participantID,
		})
	}
	for _, e := range external {
		out = append(out, &models.UnifiedPurchase{
			ID:           e.ID,
			Name:         e.Name,
			PurchaseDate: e.PurchaseDate,
			IsExternal:   true,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.After(b.PurchaseDate)
		}
		if a.ID != b.ID {
			return a.ID > b.ID
		}
		return !a.IsExternal && b.IsExternal
	})
	return out
}

// DeleteOne deletes a single purchase. Coffee and external purchases have
// separate id spaces, so kind is required.
func (s *PurchaseService) DeleteOne(ctx context.Context, id int64, kind models.PurchaseKind) error {
	if !kind.Valid() {
		return &ValidationError{Message: MsgInvalidPurchaseType}
	}

	deleted, err := s.store.Purchases().Delete(ctx, kind, id)
	if err != nil {
		return storageErr("delete purchase", err)
	}
	if !deleted {
		return &NotFoundError{Message: PurchaseKindLabel(kind) + " purchase not found"}
	}

	if kind == models.PurchaseKindCoffee {
		s.nextBuyer.invalidate(ctx)
	}
	s.log.Info("deleted purchase", "purchase_id", id, "kind", kind)
	return nil
}

// ClearAll deletes every purchase of both kinds and returns the count
func (s *PurchaseService) ClearAll(ctx context.Context) (int64, error) {
	var total int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		for _, kind := range []models.PurchaseKind{models.PurchaseKindCoffee, models.PurchaseKindExternal} {
			n, err := tx.Purchases().Clear(ctx, kind)
			if err != nil {
				return fmt.Errorf("clear %s purchases: %w", kind, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("clear purchases", err)
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("cleared purchase history", "deleted", total)
	return total, nil
}

// PurchaseKindLabel is the capitalized kind used in client messages
func PurchaseKindLabel(kind models.PurchaseKind) string {
	if kind == models.PurchaseKindExternal {
		return "External"
	}
	return "Coffee"
}

func purchaseErr(op string, err error) error {
	if isTaxonomy(err) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrForeignKey) {
		return &NotFoundError{Message: MsgParticipantNotFound}
	}
	return storageErr(op, err)
}
