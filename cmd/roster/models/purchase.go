package models

import "time"

// PurchaseKind distinguishes the two purchase tables, which do not share an id space
type PurchaseKind string

const (
	PurchaseKindCoffee   PurchaseKind = "coffee"
	PurchaseKindExternal PurchaseKind = "external"
)

// Valid reports whether k names a known purchase table
func (k PurchaseKind) Valid() bool {
	return k == PurchaseKindCoffee || k == PurchaseKindExternal
}

// CoffeePurchase is a purchase by a roster member
// Maps to: coffee_purchases table
type CoffeePurchase struct {
	ID            int64     `db:"id" json:"id"`
	ParticipantID int64     `db:"participant_id" json:"participant_id"`
	PurchaseDate  time.Time `db:"purchase_date" json:"purchase_date"`
}

// ExternalPurchase is a purchase by someone outside the roster
// Maps to: external_purchases table
type ExternalPurchase struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	PurchaseDate time.Time `db:"purchase_date" json:"purchase_date"`
}

// CoffeePurchaseWithName is a coffee purchase joined with its buyer's name
type CoffeePurchaseWithName struct {
	CoffeePurchase
	Name string `db:"name" json:"name"`
}

// UnifiedPurchase is one row of the merged purchase history
type UnifiedPurchase struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PurchaseDate  time.Time `json:"purchase_date"`
	ParticipantID *int64    `json:"participant_id,omitempty"`
	IsExternal    bool      `json:"is_external"`
}

// LastPurchase is the most recent coffee purchase with the buyer's name
type LastPurchase struct {
	ParticipantID int64     `json:"participant_id"`
	Name          string    `json:"name"`
	PurchaseDate  time.Time `json:"purchase_date"`
}
