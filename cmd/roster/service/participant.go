package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/cmd/roster/repository"
	"github.com/lyzr/coffeeroster/common/logger"
)

// Client-facing messages
const (
	MsgNameRequired        = "Name is required"
	MsgDuplicateName       = "Participant with this name already exists"
	MsgParticipantNotFound = "Participant not found"
	MsgHasPurchaseHistory  = "Cannot delete participant with purchase history. Delete their purchases first."
)

// ParticipantService manages the roster members
type ParticipantService struct {
	store     repository.Store
	nextBuyer *NextBuyerCache
	log       *logger.Logger
}

// NewParticipantService creates a new participant service
func NewParticipantService(store repository.Store, nb *NextBuyerCache, log *logger.Logger) *ParticipantService {
	return &ParticipantService{
		store:     store,
		nextBuyer: nb,
		log:       log,
	}
}

// List returns the roster in rotation order
func (s *ParticipantService) List(ctx context.Context) ([]*models.Participant, error) {
	participants, err := s.store.Participants().List(ctx)
	if err != nil {
		return nil, storageErr("list participants", err)
	}
	return participants, nil
}

// Add appends a participant to the end of the rotation
func (s *ParticipantService) Add(ctx context.Context, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: MsgNameRequired}
	}

	var created *models.Participant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Participants().LockRoster(ctx); err != nil {
			return err
		}
		maxPos, err := tx.Participants().MaxOrderPosition(ctx)
		if err != nil {
			return err
		}
		created, err = tx.Participants().Create(ctx, name, maxPos+1)
		return err
	})
	if err != nil {
		return nil, participantErr("add participant", err)
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("added participant", "participant_id", created.ID, "order_position", created.OrderPosition)
	return created, nil
}

// Update renames a participant. Rotation position is unchanged.
func (s *ParticipantService) Update(ctx context.Context, id int64, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: MsgNameRequired}
	}

	updated, err := s.store.Participants().UpdateName(ctx, id, name)
	if err != nil {
		return nil, participantErr("update participant", err)
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("renamed participant", "participant_id", id)
	return updated, nil
}

// Patch applies an RFC 7396 merge patch to a participant. Only the name is
// writable; position changes go through reorder.
func (s *ParticipantService) Patch(ctx context.Context, id int64, patch []byte) (*models.Participant, error) {
	var updated *models.Participant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		current, err := tx.Participants().GetByID(ctx, id)
		if err != nil {
			return err
		}

		original, err := json.Marshal(current)
		if err != nil {
			return err
		}
		merged, err := jsonpatch.MergePatch(original, patch)
		if err != nil {
			return validationf("invalid merge patch: %v", err)
		}

		var next models.Participant
		if err := json.Unmarshal(merged, &next); err != nil {
			return validationf("invalid participant document: %v", err)
		}
		if next.ID != current.ID || !next.CreatedAt.Equal(current.CreatedAt) || next.OrderPosition != current.OrderPosition {
			return validationf("only name can be changed; use reorder to move participants")
		}

		name := strings.TrimSpace(next.Name)
		if name == "" {
			return &ValidationError{Message: MsgNameRequired}
		}
		if name == current.Name {
			updated = current
			return nil
		}
		updated, err = tx.Participants().UpdateName(ctx, id, name)
		return err
	})
	if err != nil {
		return nil, participantErr("patch participant", err)
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("patched participant", "participant_id", id)
	return updated, nil
}

// Delete removes a participant who has no coffee purchases
func (s *ParticipantService) Delete(ctx context.Context, id int64) (*models.Participant, error) {
	var deleted *models.Participant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := tx.Participants().GetByID(ctx, id); err != nil {
			return err
		}
		count, err := tx.Purchases().CountByParticipant(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Message: MsgHasPurchaseHistory}
		}
		deleted, err = tx.Participants().Delete(ctx, id)
		return err
	})
	if err != nil {
		return nil, participantErr("delete participant", err)
	}

	s.nextBuyer.invalidate(ctx)
	s.log.Info("deleted participant", "participant_id", id)
	return deleted, nil
}

// participantErr translates repository errors into the service taxonomy.
// Errors already in the taxonomy pass through.
func participantErr(op string, err error) error {
	if isTaxonomy(err) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Message: MsgParticipantNotFound}
	case errors.Is(err, repository.ErrDuplicate):
		return &ConflictError{Message: MsgDuplicateName}
	case errors.Is(err, repository.ErrForeignKey):
		return &ConflictError{Message: MsgHasPurchaseHistory}
	default:
		return storageErr(op, err)
	}
}

func isTaxonomy(err error) bool {
	var (
		validation *ValidationError
		conflict   *ConflictError
		notFound   *NotFoundError
	)
	return errors.As(err, &validation) || errors.As(err, &conflict) || errors.As(err, &notFound)
}
