package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantService_AddAppendsToRotation(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()

	first, err := s.participants.Add(ctx, "  Alice ")
	require.NoError(t, err)
	second, err := s.participants.Add(ctx, "Bob")
	require.NoError(t, err)

	assert.Equal(t, "Alice", first.Name)
	assert.Equal(t, 1, first.OrderPosition)
	assert.Equal(t, 2, second.OrderPosition)
	assert.Equal(t, []int64{first.ID, second.ID}, s.order(t))
}

func TestParticipantService_AddRejectsBlankAndDuplicateNames(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	s.seed(t, "Alice")

	_, err := s.participants.Add(ctx, "   ")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, MsgNameRequired, validation.Message)

	_, err = s.participants.Add(ctx, "Alice")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	status, msg := HTTPStatus(err, "fallback")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, MsgDuplicateName, msg)
}

func TestParticipantService_AddAfterReorderUsesMaxPosition(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice", "Bob")

	_, err := s.rotation.Reorder(ctx, []int64{ids[1], ids[0]})
	require.NoError(t, err)

	carol, err := s.participants.Add(ctx, "Carol")
	require.NoError(t, err)
	assert.Equal(t, 3, carol.OrderPosition)
	assert.Equal(t, []int64{ids[1], ids[0], carol.ID}, s.order(t))
}

func TestParticipantService_UpdateKeepsPosition(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice", "Bob")

	updated, err := s.participants.Update(ctx, ids[1], " Robert ")
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, 2, updated.OrderPosition)

	_, err = s.participants.Update(ctx, 999, "Ghost")
	status, msg := HTTPStatus(err, "fallback")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, MsgParticipantNotFound, msg)

	_, err = s.participants.Update(ctx, ids[1], "Alice")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestParticipantService_PatchName(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice")

	patched, err := s.participants.Patch(ctx, ids[0], []byte(`{"name":"Alicia"}`))
	require.NoError(t, err)
	assert.Equal(t, "Alicia", patched.Name)
	assert.Equal(t, 1, patched.OrderPosition)
}

func TestParticipantService_PatchRejectsReadOnlyFields(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice")

	for _, patch := range []string{
		`{"order_position":5}`,
		`{"id":77}`,
		`{"name":null}`,
		`not json`,
	} {
		_, err := s.participants.Patch(ctx, ids[0], []byte(patch))
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation, patch)
	}

	_, err := s.participants.Patch(ctx, 999, []byte(`{"name":"x"}`))
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestParticipantService_DeleteRefusedWithPurchaseHistory(t *testing.T) {
	s := newMemoryServices(t)
	ctx := context.Background()
	ids := s.seed(t, "Alice", "Bob")

	_, err := s.purchases.RecordParticipantPurchase(ctx, ids[0])
	require.NoError(t, err)
	_, err = s.purchases.RecordExternalPurchase(ctx, "Visitor")
	require.NoError(t, err)
	before, err := s.purchases.ListAll(ctx)
	require.NoError(t, err)

	_, err = s.participants.Delete(ctx, ids[0])
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, MsgHasPurchaseHistory, conflict.Message)
	assert.Equal(t, ids, s.order(t))

	after, err := s.purchases.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "refused delete leaves purchases untouched")

	deleted, err := s.participants.Delete(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "Bob", deleted.Name)
	assert.Equal(t, []int64{ids[0]}, s.order(t))

	_, err = s.participants.Delete(ctx, ids[1])
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
