package models

// NextBuyerView is derived on demand and never persisted
type NextBuyerView struct {
	NextBuyer    *Participant  `json:"next_buyer"`
	LastPurchase *LastPurchase `json:"last_purchase"`
	Message      string        `json:"message,omitempty"`
}
