package models

import "time"

// Participant is a member of the coffee rotation
// Maps to: participants table
type Participant struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Relative rank in the rotation; only the ascending sort order matters,
	// values need not be contiguous.
	OrderPosition int `db:"order_position" json:"order_position"`
}

// ParticipantIDs projects the ids of participants, preserving order
func ParticipantIDs(participants []*Participant) []int64 {
	ids := make([]int64, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
