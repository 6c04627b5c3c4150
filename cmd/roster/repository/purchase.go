package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/common/db"
)

// PostgresPurchaseRepository handles database operations for both purchase tables
type PostgresPurchaseRepository struct {
	q db.Querier
}

// NewPurchaseRepository creates a purchase repository on q
func NewPurchaseRepository(q db.Querier) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{q: q}
}

func tableFor(kind models.PurchaseKind) (string, error) {
	switch kind {
	case models.PurchaseKindCoffee:
		return "coffee_purchases", nil
	case models.PurchaseKindExternal:
		return "external_purchases", nil
	default:
		return "", fmt.Errorf("unknown purchase kind %q", kind)
	}
}

// CreateCoffee records a purchase by a participant
func (r *PostgresPurchaseRepository) CreateCoffee(ctx context.Context, participantID int64, at time.Time) (*models.CoffeePurchase, error) {
	query := `
		INSERT INTO coffee_purchases (participant_id, purchase_date)
		VALUES ($1, $2)
		RETURNING id, participant_id, purchase_date
	`

	p := &models.CoffeePurchase{}
	err := r.q.QueryRow(ctx, query, participantID, at).Scan(&p.ID, &p.ParticipantID, &p.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("failed to create coffee purchase: %w", mapError(err))
	}
	return p, nil
}

// CreateExternal records a purchase by someone outside the roster
func (r *PostgresPurchaseRepository) CreateExternal(ctx context.Context, name string, at time.Time) (*models.ExternalPurchase, error) {
	query := `
		INSERT INTO external_purchases (name, purchase_date)
		VALUES ($1, $2)
		RETURNING id, name, purchase_date
	`

	p := &models.ExternalPurchase{}
	err := r.q.QueryRow(ctx, query, name, at).Scan(&p.ID, &p.Name, &p.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("failed to create external purchase: %w", mapError(err))
	}
	return p, nil
}

// ListCoffee returns coffee purchases joined with buyer names
func (r *PostgresPurchaseRepository) ListCoffee(ctx context.Context) ([]*models.CoffeePurchaseWithName, error) {
	query := `
		SELECT cp.id, cp.participant_id, cp.purchase_date, p.name
		FROM coffee_purchases cp
		JOIN participants p ON p.id = cp.participant_id
		ORDER BY cp.purchase_date DESC, cp.id DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list coffee purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]*models.CoffeePurchaseWithName, 0)
	for rows.Next() {
		p := &models.CoffeePurchaseWithName{}
		if err := rows.Scan(&p.ID, &p.ParticipantID, &p.PurchaseDate, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan coffee purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coffee purchases: %w", err)
	}
	return purchases, nil
}

// ListExternal returns external purchases
func (r *PostgresPurchaseRepository) ListExternal(ctx context.Context) ([]*models.ExternalPurchase, error) {
	query := `
		SELECT id, name, purchase_date
		FROM external_purchases
		ORDER BY purchase_date DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list external purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]*models.ExternalPurchase, 0)
	for rows.Next() {
		p := &models.ExternalPurchase{}
		if err := rows.Scan(&p.ID, &p.Name, &p.PurchaseDate); err != nil {
			return nil, fmt.Errorf("failed to scan external purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating external purchases: %w", err)
	}
	return purchases, nil
}

// Latest returns the newest coffee purchase with the buyer's name
func (r *PostgresPurchaseRepository) Latest(ctx context.Context) (*models.LastPurchase, error) {
	query := `
		SELECT cp.participant_id, p.name, cp.purchase_date
		FROM coffee_purchases cp
		JOIN participants p ON p.id = cp.participant_id
		ORDER BY cp.purchase_date DESC, cp.id DESC
		LIMIT 1
	`

	last := &models.LastPurchase{}
	err := r.q.QueryRow(ctx, query).Scan(&last.ParticipantID, &last.Name, &last.PurchaseDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest purchase: %w", err)
	}
	return last, nil
}

// CountByParticipant counts coffee purchases referencing a participant
func (r *PostgresPurchaseRepository) CountByParticipant(ctx context.Context, participantID int64) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM coffee_purchases WHERE participant_id = $1`, participantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count purchases of %d: %w", participantID, err)
	}
	return n, nil
}

// Delete removes a single purchase of the given kind
func (r *PostgresPurchaseRepository) Delete(ctx context.Context, kind models.PurchaseKind, id int64) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	result, err := r.q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s purchase %d: %w", kind, id, err)
	}
	return result.RowsAffected() > 0, nil
}

// Clear deletes every purchase of the given kind
func (r *PostgresPurchaseRepository) Clear(ctx context.Context, kind models.PurchaseKind) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	result, err := r.q.Exec(ctx, `DELETE FROM `+table)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s purchases: %w", kind, err)
	}
	return result.RowsAffected(), nil
}
