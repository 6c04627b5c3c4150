package models

import "time"

// ReorderHistoryEntry is a before/after snapshot of one reorder
// Maps to: reorder_history table (orders stored as JSONB arrays of ids)
type ReorderHistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	OldOrder  []int64   `db:"old_order" json:"old_order"`
	NewOrder  []int64   `db:"new_order" json:"new_order"`
}
