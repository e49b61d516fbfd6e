package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret"

type memoryBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Duration
}

func (b *memoryBlacklist) BlacklistToken(_ context.Context, token string, expiry time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens == nil {
		b.tokens = map[string]time.Duration{}
	}
	b.tokens[token] = expiry
	return nil
}

func (b *memoryBlacklist) IsTokenBlacklisted(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tokens[token]
	return ok, nil
}

func setupAuthServiceTest(t *testing.T) (AuthService, *testRepos, *memoryBlacklist) {
	repos := setupServiceTest(t)
	blacklist := &memoryBlacklist{}
	svc := NewAuthService(
		repos.userService(),
		repos.cartService(),
		blacklist,
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	return svc, repos, blacklist
}

func TestAuthService_Register(t *testing.T) {
	svc, _, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"valid registration", "new@example.com", nil},
		{"duplicate email", "new@example.com", ErrEmailAlreadyExists},
		{"invalid email", "nope", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := svc.Register(ctx, RegisterInput{
				Email:     tt.email,
				Password:  "password123",
				FirstName: "New",
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, user.Email)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)

			claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, util.TokenTypeAccess, claims.TokenType)
		})
	}
}

func TestAuthService_Login_MergesGuestCart(t *testing.T) {
	svc, repos, _ := setupAuthServiceTest(t)
	carts := repos.cartService()
	ctx := context.Background()

	user, _, err := svc.Register(ctx, RegisterInput{Email: "login@example.com", Password: "password123"})
	require.NoError(t, err)

	product := createProduct(t, repos.db, "P", "3.00", 10)
	guest, err := carts.CreateCart(ctx, CartOwner{SessionID: "sess-42"})
	require.NoError(t, err)
	_, err = carts.AddItemToCart(ctx, guest.ID, product.ID, 2, nil)
	require.NoError(t, err)

	result, err := svc.Login(ctx, "login@example.com", "password123", "sess-42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	require.NotNil(t, result.Cart)
	require.Len(t, result.Cart.Items, 1)
	assert.Equal(t, 2, result.Cart.Items[0].Quantity)

	guestAfter, err := carts.GetCart(ctx, CartOwner{SessionID: "sess-42"})
	require.NoError(t, err)
	assert.Nil(t, guestAfter)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Email: "x@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "x@example.com", "bad-password", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LogoutAndRefresh(t *testing.T) {
	svc, _, blacklist := setupAuthServiceTest(t)
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, RegisterInput{Email: "refresh@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token cannot be used to refresh.
	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, util.ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, tokens.AccessToken))
	revoked, err := blacklist.IsTokenBlacklisted(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, blacklist.BlacklistToken(ctx, tokens.RefreshToken, time.Hour))
	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.Error(t, svc.Logout(ctx, "not-a-token"))
}
