package repository

import (
	"context"
	"testing"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewUserRepository(conn)
	ctx := context.Background()

	user := &model.User{Email: "tech@example.com", PasswordHash: "hash", FirstName: "Tech", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	require.NoError(t, conn.Create(&model.UserAddress{UserID: user.ID, AddressLine1: "A", City: "X", PostalCode: "1", Country: "US"}).Error)
	require.NoError(t, conn.Create(&model.UserAddress{UserID: user.ID, AddressLine1: "B", City: "Y", PostalCode: "2", Country: "US", IsDefault: true}).Error)

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, found.Addresses, 2)
	assert.True(t, found.Addresses[0].IsDefault, "default address comes first")

	byEmail, err := repo.FindByEmail(ctx, "  TECH@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_EmailTaken(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewUserRepository(conn)
	ctx := context.Background()
	user := createTestUser(t, conn, "taken@example.com")

	taken, err := repo.EmailTaken(ctx, "taken@example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.EmailTaken(ctx, "taken@example.com", user.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepository_ListUpdateDelete(t *testing.T) {
	conn := setupRepoTest(t)
	repo := NewUserRepository(conn)
	ctx := context.Background()
	first := createTestUser(t, conn, "one@example.com")
	createTestUser(t, conn, "two@example.com")

	users, total, err := repo.List(ctx, Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 1)
	assert.Equal(t, first.ID, users[0].ID)

	first.Phone = "+1 512 555 0100"
	require.NoError(t, repo.Update(ctx, first))
	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "+1 512 555 0100", found.Phone)

	require.NoError(t, conn.Create(&model.UserAddress{UserID: first.ID, AddressLine1: "A", City: "X", PostalCode: "1", Country: "US"}).Error)
	require.NoError(t, repo.Delete(ctx, first.ID))

	_, err = repo.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var addresses int64
	conn.Model(&model.UserAddress{}).Where("user_id = ?", first.ID).Count(&addresses)
	assert.Zero(t, addresses)

	assert.ErrorIs(t, repo.Delete(ctx, first.ID), gorm.ErrRecordNotFound)
}
