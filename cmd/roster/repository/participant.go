package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/lyzr/coffeeroster/common/db"
)

// PostgresParticipantRepository handles database operations for participants
type PostgresParticipantRepository struct {
	q    db.Querier
	inTx bool
}

// NewParticipantRepository creates a participant repository on q
func NewParticipantRepository(q db.Querier, inTx bool) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{q: q, inTx: inTx}
}

const participantColumns = `id, name, created_at, order_position`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	p := &models.Participant{}
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.OrderPosition); err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves all participants in rotation order
func (r *PostgresParticipantRepository) List(ctx context.Context) ([]*models.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants
		ORDER BY order_position ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

// LockRoster takes a table lock that conflicts with itself and with every
// INSERT/UPDATE/DELETE, so a reorder sees a stable set of ids.
func (r *PostgresParticipantRepository) LockRoster(ctx context.Context) error {
	if !r.inTx {
		return nil
	}
	if _, err := r.q.Exec(ctx, `LOCK TABLE participants IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("failed to lock participants: %w", err)
	}
	return nil
}

// GetByID retrieves a participant by id
func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`

	p, err := scanParticipant(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %d: %w", id, mapError(err))
	}
	return p, nil
}

// MaxOrderPosition returns the highest order_position, 0 for an empty roster
func (r *PostgresParticipantRepository) MaxOrderPosition(ctx context.Context) (int, error) {
	var maxPos int
	err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(order_position), 0) FROM participants`).Scan(&maxPos)
	if err != nil {
		return 0, fmt.Errorf("failed to read max order position: %w", err)
	}
	return maxPos, nil
}

// Create inserts a new participant
func (r *PostgresParticipantRepository) Create(ctx context.Context, name string, orderPosition int) (*models.Participant, error) {
	query := `
		INSERT INTO participants (name, order_position)
		VALUES ($1, $2)
		RETURNING ` + participantColumns

	p, err := scanParticipant(r.q.QueryRow(ctx, query, name, orderPosition))
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", mapError(err))
	}
	return p, nil
}

// UpdateName renames a participant
func (r *PostgresParticipantRepository) UpdateName(ctx context.Context, id int64, name string) (*models.Participant, error) {
	query := `
		UPDATE participants
		SET name = $2
		WHERE id = $1
		RETURNING ` + participantColumns

	p, err := scanParticipant(r.q.QueryRow(ctx, query, id, name))
	if err != nil {
		return nil, fmt.Errorf("failed to update participant %d: %w", id, mapError(err))
	}
	return p, nil
}

// SetOrderPosition moves a participant within the rotation
func (r *PostgresParticipantRepository) SetOrderPosition(ctx context.Context, id int64, orderPosition int) error {
	result, err := r.q.Exec(ctx, `UPDATE participants SET order_position = $2 WHERE id = $1`, id, orderPosition)
	if err != nil {
		return fmt.Errorf("failed to set order position of %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a participant
func (r *PostgresParticipantRepository) Delete(ctx context.Context, id int64) (*models.Participant, error) {
	query := `DELETE FROM participants WHERE id = $1 RETURNING ` + participantColumns

	p, err := scanParticipant(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to delete participant %d: %w", id, mapError(err))
	}
	return p, nil
}
