package service

import (
	"context"
	"errors"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/mdtstech/nexus-techhub-backend/pkg/util"
)

var ErrTokenRevoked = errors.New("token has been revoked")

// TokenBlacklist records revoked tokens until they would expire anyway.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, token string, expiry time.Duration) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

type RegisterInput struct {
	Email     string        `json:"email" binding:"required,email"`
	Password  string        `json:"password" binding:"required,min=8"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Phone     string        `json:"phone"`
	Address   *AddressInput `json:"address"`
}

type LoginResult struct {
	User   *model.User     `json:"user"`
	Tokens *util.TokenPair `json:"tokens"`
	// Cart is the merged cart when a guest session was carried into login.
	Cart *CartView `json:"cart,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, *util.TokenPair, error)
	Login(ctx context.Context, email, password, sessionID string) (*LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
}

type authService struct {
	users         UserService
	carts         CartService
	blacklist     TokenBlacklist
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService builds the auth flow. blacklist may be nil, in which case
// logout is stateless.
func NewAuthService(
	users UserService,
	carts CartService,
	blacklist TokenBlacklist,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		users:         users,
		carts:         carts,
		blacklist:     blacklist,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*model.User, *util.TokenPair, error) {
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": input.Email,
	})

	user, err := s.users.CreateUser(ctx, CreateUserInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Role:      model.RoleUser,
		Address:   input.Address,
	})
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

// Login authenticates the user and, when sessionID is set, folds that guest
// cart into the user's cart. A failed merge does not fail the login.
func (s *authService) Login(ctx context.Context, email, password, sessionID string) (*LoginResult, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{User: user, Tokens: tokens}
	if sessionID != "" && s.carts != nil {
		cart, err := s.carts.TransferCart(ctx, sessionID, user.ID)
		if err != nil {
			logger.Warn("Guest cart merge failed during login", map[string]interface{}{
				"user_id":    user.ID,
				"session_id": sessionID,
				"error":      err.Error(),
			})
		} else {
			result.Cart = cart
		}
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return result, nil
}

// Logout blacklists the access token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := util.ValidateToken(accessToken, s.jwtSecret)
	if err != nil {
		return err
	}
	if s.blacklist == nil {
		return nil
	}

	ttl := s.accessExpiry
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.blacklist.BlacklistToken(ctx, accessToken, ttl); err != nil {
		logger.Error("Failed to revoke token", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeRefresh {
		return nil, util.ErrInvalidToken
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsTokenBlacklisted(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}
