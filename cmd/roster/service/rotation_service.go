package service

import (
	"context"
	"strings"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/cmd/roster/repository"
	"github.com/lyzr/coffeeroster/common/logger"
)

// historyRetention is how many reorder history entries survive a reorder
const historyRetention = 2

// Client-facing messages
const (
	MsgNotAPermutation      = "participantIds must contain every current participant exactly once"
	MsgBuyerRequired        = "Either participant_id or buyer_name is required"
	MsgBuyerAmbiguous       = "Provide either participant_id or buyer_name, not both"
	MsgReorderFailed        = "Failed to reorder participants"
	MsgOutOfOrderFailed     = "Failed to record out-of-order purchase"
	MsgNextBuyerFailed      = "Failed to calculate next buyer"
	MsgReorderHistoryFailed = "Failed to fetch reorder history"
)

// OutOfOrderRequest describes a purchase made by someone other than the
// expected next buyer. Exactly one of ParticipantID and BuyerName is set.
// CurrentNextBuyerID is who the caller believed was due; when nil the
// service derives it from the stored state.
type OutOfOrderRequest struct {
	ParticipantID      *int64 `json:"participant_id"`
	BuyerName          string `json:"buyer_name"`
	CurrentNextBuyerID *int64 `json:"current_next_buyer_id"`
}

// OutOfOrderResult is the state after an out-of-order purchase
type OutOfOrderResult struct {
	Purchase     any                   `json:"purchase"`
	Participants []*models.Participant `json:"participants"`
	NextBuyer    *models.Participant   `json:"next_buyer"`
}

// RotationConfig holds rotation policy switches
type RotationConfig struct {
	// SwallowHistoryErrors makes ReorderHistory return an empty list on
	// backend failure instead of an error.
	SwallowHistoryErrors bool
}

// RotationService derives the next buyer and edits the rotation order
type RotationService struct {
	store     repository.Store
	purchases *PurchaseService
	nextBuyer *NextBuyerCache
	cfg       RotationConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewRotationService creates a new rotation service
func NewRotationService(store repository.Store, purchases *PurchaseService, nb *NextBuyerCache, cfg RotationConfig, log *logger.Logger) *RotationService {
	return &RotationService{
		store:     store,
		purchases: purchases,
		nextBuyer: nb,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NextBuyer returns whose turn it is, served from cache when possible
func (s *RotationService) NextBuyer(ctx context.Context) (*models.NextBuyerView, error) {
	gen, cacheable := s.nextBuyer.generation(ctx)
	if cacheable {
		if view, ok := s.nextBuyer.get(ctx, gen); ok {
			return view, nil
		}
	}

	var view models.NextBuyerView
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		view, err = nextBuyerIn(ctx, tx)
		return err
	})
	if err != nil {
		return nil, storageErr("next buyer", err)
	}

	if cacheable {
		s.nextBuyer.put(ctx, gen, view)
	}
	return &view, nil
}

func nextBuyerIn(ctx context.Context, tx repository.Repositories) (models.NextBuyerView, error) {
	participants, err := tx.Participants().List(ctx)
	if err != nil {
		return models.NextBuyerView{}, err
	}
	last, err := tx.Purchases().Latest(ctx)
	if err != nil {
		return models.NextBuyerView{}, err
	}
	return ComputeNextBuyer(participants, last), nil
}

// Reorder replaces the rotation order with ids, which must list every
// current participant exactly once. The change and its history entry are
// written in one transaction.
func (s *RotationService) Reorder(ctx context.Context, ids []int64) ([]*models.Participant, error) {
	var participants []*models.Participant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Participants().LockRoster(ctx); err != nil {
			return err
		}
		current, err := tx.Participants().List(ctx)
		if err != nil {
			return err
		}
		oldOrder := models.ParticipantIDs(current)
		if !isPermutation(oldOrder, ids) {
			return &ValidationError{Message: MsgNotAPermutation}
		}

		participants, err = s.applyOrder(ctx, tx, oldOrder, ids)
		return err
	})
	if err != nil {
		return nil, &ReorderError{Err: err}
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("reordered participants", "order", ids)
	return participants, nil
}

// applyOrder writes newOrder as positions 1..N, records the change and
// prunes old history. It returns the reloaded roster.
func (s *RotationService) applyOrder(ctx context.Context, tx repository.Repositories, oldOrder, newOrder []int64) ([]*models.Participant, error) {
	for i, id := range newOrder {
		if err := tx.Participants().SetOrderPosition(ctx, id, i+1); err != nil {
			return nil, err
		}
	}

	entry := &models.ReorderHistoryEntry{
		Timestamp: s.now(),
		OldOrder:  append(make([]int64, 0, len(oldOrder)), oldOrder...),
		NewOrder:  append(make([]int64, 0, len(newOrder)), newOrder...),
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return nil, err
	}
	if _, err := tx.History().PruneKeepLatest(ctx, historyRetention); err != nil {
		return nil, err
	}

	return tx.Participants().List(ctx)
}

// ReorderHistory returns the retained reorder entries, newest first
func (s *RotationService) ReorderHistory(ctx context.Context) ([]*models.ReorderHistoryEntry, error) {
	entries, err := s.store.History().List(ctx)
	if err != nil {
		if s.cfg.SwallowHistoryErrors {
			s.log.Warn("reorder history unavailable, returning empty list", "error", err)
			return []*models.ReorderHistoryEntry{}, nil
		}
		return nil, storageErr("reorder history", err)
	}
	return entries, nil
}

// RecordOutOfOrderPurchase records a purchase by someone who was not next.
// A roster member's purchase and the resulting reorder share one
// transaction: the skipped participant moves to the front and the buyer to
// the back. An external buyer's purchase leaves the rotation alone.
func (s *RotationService) RecordOutOfOrderPurchase(ctx context.Context, req OutOfOrderRequest) (*OutOfOrderResult, error) {
	name := strings.TrimSpace(req.BuyerName)
	switch {
	case req.ParticipantID == nil && name == "":
		return nil, &ValidationError{Message: MsgBuyerRequired}
	case req.ParticipantID != nil && name != "":
		return nil, &ValidationError{Message: MsgBuyerAmbiguous}
	}

	if req.ParticipantID == nil {
		return s.recordExternalOutOfOrder(ctx, name)
	}

	buyerID := *req.ParticipantID
	result := &OutOfOrderResult{}
	phase := PhasePurchase
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Participants().LockRoster(ctx); err != nil {
			return err
		}

		var skippedID int64
		if req.CurrentNextBuyerID != nil {
			skippedID = *req.CurrentNextBuyerID
		} else {
			view, err := nextBuyerIn(ctx, tx)
			if err != nil {
				return err
			}
			if view.NextBuyer != nil {
				skippedID = view.NextBuyer.ID
			}
		}

		purchase, err := recordCoffee(ctx, tx, buyerID, s.now())
		if err != nil {
			return err
		}
		result.Purchase = purchase

		phase = PhaseReorder
		current, err := tx.Participants().List(ctx)
		if err != nil {
			return err
		}
		oldOrder := models.ParticipantIDs(current)
		newOrder := ReconcileOrder(oldOrder, buyerID, skippedID)

		result.Participants, err = s.applyOrder(ctx, tx, oldOrder, newOrder)
		if err != nil {
			return err
		}

		view, err := nextBuyerIn(ctx, tx)
		if err != nil {
			return err
		}
		result.NextBuyer = view.NextBuyer
		return nil
	})
	if err != nil {
		return nil, &ReconciliationError{Phase: phase, Err: purchaseErr(phase, err)}
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("recorded out-of-order purchase",
		"participant_id", buyerID,
		"next_buyer_id", participantID(result.NextBuyer),
	)
	return result, nil
}

func (s *RotationService) recordExternalOutOfOrder(ctx context.Context, name string) (*OutOfOrderResult, error) {
	purchase, err := s.purchases.RecordExternalPurchase(ctx, name)
	if err != nil {
		return nil, &ReconciliationError{Phase: PhasePurchase, Err: err}
	}

	participants, err := s.store.Participants().List(ctx)
	if err != nil {
		return nil, &ReconciliationError{Phase: PhasePurchase, Err: storageErr("list participants", err)}
	}
	view, err := s.NextBuyer(ctx)
	if err != nil {
		return nil, &ReconciliationError{Phase: PhasePurchase, Err: err}
	}

	return &OutOfOrderResult{
		Purchase:     purchase,
		Participants: participants,
		NextBuyer:    view.NextBuyer,
	}, nil
}

func participantID(p *models.Participant) int64 {
	if p == nil {
		return 0
	}
	return p.ID
}
