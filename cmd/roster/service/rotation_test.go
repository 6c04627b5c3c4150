package service

import (
	"testing"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(ids ...int64) []*models.Participant {
	out := make([]*models.Participant, len(ids))
	for i, id := range ids {
		out[i] = &models.Participant{ID: id, OrderPosition: i + 1}
	}
	return out
}

func lastBy(id int64) *models.LastPurchase {
	return &models.LastPurchase{ParticipantID: id, PurchaseDate: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func TestComputeNextBuyer(t *testing.T) {
	tests := []struct {
		name    string
		roster  []*models.Participant
		last    *models.LastPurchase
		wantID  int64
		wantMsg string
	}{
		{name: "empty roster", roster: nil, wantMsg: MessageNoParticipants},
		{name: "no purchases starts at head", roster: roster(10, 20, 30), wantID: 10},
		{name: "advances past last buyer", roster: roster(10, 20, 30), last: lastBy(10), wantID: 20},
		{name: "wraps around", roster: roster(10, 20, 30), last: lastBy(30), wantID: 10},
		{name: "single participant", roster: roster(10), last: lastBy(10), wantID: 10},
		{name: "stale buyer restarts at head", roster: roster(10, 20, 30), last: lastBy(99), wantID: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ComputeNextBuyer(tt.roster, tt.last)

			assert.Equal(t, tt.wantMsg, view.Message)
			if tt.wantID == 0 {
				assert.Nil(t, view.NextBuyer)
				return
			}
			require.NotNil(t, view.NextBuyer)
			assert.Equal(t, tt.wantID, view.NextBuyer.ID)
			assert.Equal(t, tt.last, view.LastPurchase)
		})
	}
}

func TestComputeNextBuyer_FollowsCurrentOrder(t *testing.T) {
	// same buyer, different order: the successor follows the roster as it is now
	view := ComputeNextBuyer(roster(30, 10, 20), lastBy(10))
	require.NotNil(t, view.NextBuyer)
	assert.Equal(t, int64(20), view.NextBuyer.ID)
}

func TestReconcileOrder(t *testing.T) {
	tests := []struct {
		name    string
		current []int64
		buyer   int64
		skipped int64
		want    []int64
	}{
		{name: "skipped first buyer last", current: []int64{1, 2, 3, 4}, buyer: 3, skipped: 1, want: []int64{1, 2, 4, 3}},
		{name: "skipped pulled to front", current: []int64{1, 2, 3, 4}, buyer: 1, skipped: 3, want: []int64{3, 2, 4, 1}},
		{name: "skipped equals buyer", current: []int64{1, 2, 3}, buyer: 2, skipped: 2, want: []int64{1, 3, 2}},
		{name: "skipped not on roster", current: []int64{1, 2, 3}, buyer: 1, skipped: 42, want: []int64{2, 3, 1}},
		{name: "no skipped participant", current: []int64{1, 2, 3}, buyer: 2, skipped: 0, want: []int64{1, 3, 2}},
		{name: "duplicates collapse", current: []int64{1, 2, 2, 3}, buyer: 3, skipped: 2, want: []int64{2, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconcileOrder(tt.current, tt.buyer, tt.skipped))
		})
	}
}

func TestIsPermutation(t *testing.T) {
	current := []int64{1, 2, 3}

	assert.True(t, isPermutation(current, []int64{3, 1, 2}))
	assert.True(t, isPermutation(nil, []int64{}))
	assert.False(t, isPermutation(current, []int64{1, 2}), "missing id")
	assert.False(t, isPermutation(current, []int64{1, 2, 3, 4}), "extra id")
	assert.False(t, isPermutation(current, []int64{1, 2, 2}), "duplicate id")
	assert.False(t, isPermutation(current, []int64{1, 2, 9}), "unknown id")
}
