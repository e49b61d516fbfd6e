package repository

import (
	"context"
	"testing"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestAddress(userID uint, line string, isDefault bool) *model.UserAddress {
	return &model.UserAddress{
		UserID:       userID,
		AddressLine1: line,
		City:         "Austin",
		State:        "TX",
		PostalCode:   "78701",
		Country:      "US",
		AddressType:  model.AddressTypeBoth,
		IsDefault:    isDefault,
	}
}

func TestAddressRepository_DefaultBookkeeping(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewAddressRepository(conn)
	ctx := context.Background()
	user := createTestUser(t, conn, "addr@example.com")
	other := createTestUser(t, conn, "other@example.com")

	home := newTestAddress(user.ID, "1 Home Rd", true)
	work := newTestAddress(user.ID, "2 Work Ave", false)
	foreign := newTestAddress(other.ID, "3 Elsewhere", true)
	for _, a := range []*model.UserAddress{home, work, foreign} {
		require.NoError(t, repo.Create(ctx, a))
	}

	require.NoError(t, repo.LockOwner(ctx, user.ID))
	require.NoError(t, repo.ClearDefault(ctx, user.ID, work.ID))
	require.NoError(t, repo.MarkDefault(ctx, user.ID, work.ID))

	list, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, work.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	stillDefault, err := repo.FindByUserAndID(ctx, other.ID, foreign.ID)
	require.NoError(t, err)
	assert.True(t, stillDefault.IsDefault, "other users are untouched")

	assert.ErrorIs(t, repo.MarkDefault(ctx, user.ID, foreign.ID), gorm.ErrRecordNotFound)
}

func TestAddressRepository_DeleteAndFirstRemaining(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewAddressRepository(conn)
	ctx := context.Background()
	user := createTestUser(t, conn, "remaining@example.com")

	first := newTestAddress(user.ID, "first", false)
	second := newTestAddress(user.ID, "second", true)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	count, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	remaining, err := repo.FirstRemaining(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, remaining.ID)

	require.NoError(t, repo.Delete(ctx, user.ID, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, user.ID, first.ID), gorm.ErrRecordNotFound)

	_, err = repo.FindByUserAndID(ctx, user.ID+1, second.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
