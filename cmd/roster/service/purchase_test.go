package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lyzr/coffeeroster/cmd/roster/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseService_RecordUnknownParticipant(t *testing.T) {
	s := newMemoryServices(t)

	_, err := s.purchases.RecordParticipantPurchase(context.Background(), 42)

	status, msg := HTTPStatus(err, "fallback")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, MsgParticipantNotFound, msg)
}

func TestPurchaseService_RecordExternalRequiresName(t *testing.T) {
	s := newMemoryServices(t)

	_, err := s.purchases.RecordExternalPurchase(context.Background(), " ")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestPurchaseService_ListAllMergesNewestFirst(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice", "Bob")

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	at := func(d time.Duration) func() time.Time {
		return func() time.Time { return base.Add(d) }
	}

	s.purchases.now = at(0)
	_, err := s.purchases.RecordParticipantPurchase(ctx, ids[0])
	require.NoError(t, err)

	s.purchases.now = at(2 * time.Hour)
	_, err = s.purchases.RecordExternalPurchase(ctx, "Visitor")
	require.NoError(t, err)

	s.purchases.now = at(time.Hour)
	_, err = s.purchases.RecordParticipantPurchase(ctx, ids[1])
	require.NoError(t, err)

	all, err := s.purchases.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "Visitor", all[0].Name)
	assert.True(t, all[0].IsExternal)
	assert.Nil(t, all[0].ParticipantID)

	assert.Equal(t, "Bob", all[1].Name)
	require.NotNil(t, all[1].ParticipantID)
	assert.Equal(t, ids[1], *all[1].ParticipantID)

	assert.Equal(t, "Alice", all[2].Name)
	assert.False(t, all[2].IsExternal)
}

func TestMergePurchases_TieBreaks(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	coffee := []*models.CoffeePurchaseWithName{
		{CoffeePurchase: models.CoffeePurchase{ID: 1, ParticipantID: 7, PurchaseDate: at}, Name: "Alice"},
		{CoffeePurchase: models.CoffeePurchase{ID: 3, ParticipantID: 8, PurchaseDate: at}, Name: "Bob"},
	}
	external := []*models.ExternalPurchase{
		{ID: 3, Name: "Visitor", PurchaseDate: at},
	}

	merged := mergePurchases(coffee, external)

	require.Len(t, merged, 3)
	assert.Equal(t, "Bob", merged[0].Name, "higher id first, coffee before external")
	assert.Equal(t, "Visitor", merged[1].Name)
	assert.Equal(t, "Alice", merged[2].Name)
}

func TestPurchaseService_DeleteOne(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice")

	coffee, err := s.purchases.RecordParticipantPurchase(ctx, ids[0])
	require.NoError(t, err)

	err = s.purchases.DeleteOne(ctx, coffee.ID, "tea")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, MsgInvalidPurchaseType, validation.Message)

	// ids are per table: an external purchase with this id does not exist
	err = s.purchases.DeleteOne(ctx, coffee.ID, models.PurchaseKindExternal)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	require.NoError(t, s.purchases.DeleteOne(ctx, coffee.ID, models.PurchaseKindCoffee))

	all, err := s.purchases.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPurchaseService_ClearAllCountsBothKinds(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice")

	_, err := s.purchases.RecordParticipantPurchase(ctx, ids[0])
	require.NoError(t, err)
	_, err = s.purchases.RecordParticipantPurchase(ctx, ids[0])
	require.NoError(t, err)
	_, err = s.purchases.RecordExternalPurchase(ctx, "Visitor")
	require.NoError(t, err)

	n, err := s.purchases.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// participant can be removed once the history is gone
	_, err = s.participants.Delete(ctx, ids[0])
	assert.NoError(t, err)
}
