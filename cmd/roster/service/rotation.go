package service

import "github.com/lyzr/coffeeroster/cmd/roster/models"

// MessageNoParticipants is returned in the next-buyer view of an empty roster
const MessageNoParticipants = "No participants found"

// ComputeNextBuyer derives whose turn it is from the ordered roster and the
// most recent coffee purchase. The buyer after the last one, wrapping around,
// is next. Without a purchase, or when the last buyer is no longer on the
// roster, the rotation restarts at the head.
func ComputeNextBuyer(participants []*models.Participant, last *models.LastPurchase) models.NextBuyerView {
	if len(participants) == 0 {
		return models.NextBuyerView{LastPurchase: last, Message: MessageNoParticipants}
	}

	view := models.NextBuyerView{NextBuyer: participants[0], LastPurchase: last}
	if last == nil {
		return view
	}

	for i, p := range participants {
		if p.ID == last.ParticipantID {
			view.NextBuyer = participants[(i+1)%len(participants)]
			break
		}
	}
	return view
}

// ReconcileOrder builds the roster order after buyerID bought out of turn
// while skippedID was due. The skipped participant moves to the front, the
// buyer to the back, and everybody else keeps their relative order.
// A skippedID of 0, or one equal to the buyer, is ignored.
func ReconcileOrder(current []int64, buyerID, skippedID int64) []int64 {
	seen := make(map[int64]bool, len(current)+2)
	order := make([]int64, 0, len(current)+2)
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	present := false
	for _, id := range current {
		if id == skippedID {
			present = true
			break
		}
	}
	if skippedID != 0 && skippedID != buyerID && present {
		add(skippedID)
	}

	for _, id := range current {
		if id != buyerID && id != skippedID {
			add(id)
		}
	}
	add(buyerID)
	return order
}

// isPermutation reports whether ids holds exactly the ids of current, once each
func isPermutation(current, ids []int64) bool {
	if len(current) != len(ids) {
		return false
	}
	want := make(map[int64]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	for _, id := range ids {
		if !want[id] {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}
