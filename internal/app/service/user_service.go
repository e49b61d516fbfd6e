package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	apperrors "github.com/mdtstech/nexus-techhub-backend/internal/errors"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"github.com/mdtstech/nexus-techhub-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserHasOrders      = errors.New("Cannot delete user with existing orders")
	ErrInvalidEmail       = errors.New("invalid email address")
)

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      model.UserRole
	// Address, when set, is stored as the user's default address.
	Address *AddressInput
}

type UpdateUserInput struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type UserList struct {
	Users []model.User `json:"users"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page, limit int) (*UserList, error)
	UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

type userService struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	addressRepo repository.AddressRepository
	orderRepo   repository.OrderRepository
}

func NewUserService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	addressRepo repository.AddressRepository,
	orderRepo repository.OrderRepository,
) UserService {
	return &userService{
		db:          db,
		userRepo:    userRepo,
		addressRepo: addressRepo,
		orderRepo:   orderRepo,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// CreateUser stores the user and the optional first address in one transaction.
func (s *userService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	logger.Info("Creating user", map[string]interface{}{
		"email":       input.Email,
		"has_address": input.Address != nil,
	})

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = model.RoleUser
	}
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         role,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)

		taken, err := users.EmailTaken(ctx, email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailAlreadyExists
		}
		if err := users.Create(ctx, user); err != nil {
			if apperrors.IsUniqueViolation(err) {
				return ErrEmailAlreadyExists
			}
			return err
		}

		if input.Address != nil {
			first := *input.Address
			first.IsDefault = true
			if _, err := addAddressTx(ctx, s.addressRepo.WithTx(tx), user.ID, first); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) || errors.Is(err, ErrInvalidAddress) {
			logger.Warn("User creation rejected", map[string]interface{}{
				"email":  email,
				"reason": err.Error(),
			})
		} else {
			logger.Error("Failed to create user", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, err
	}

	logger.Info("User created", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return s.GetUserByID(ctx, user.ID)
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	p := repository.Page{Page: page, Limit: limit}.Normalize()
	users, total, err := s.userRepo.List(ctx, p)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return &UserList{Users: users, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error) {
	logger.Info("Updating user", map[string]interface{}{
		"user_id": id,
	})

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			taken, err := s.userRepo.EmailTaken(ctx, email, id)
			if err != nil {
				return nil, err
			}
			if taken {
				logger.Warn("Email change rejected: already in use", map[string]interface{}{
					"user_id": id,
				})
				return nil, ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if input.Password != nil {
		if err := util.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := util.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		logger.Error("Failed to update user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

// DeleteUser refuses while any order references the user.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	logger.Info("Deleting user", map[string]interface{}{
		"user_id": id,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders, err := s.orderRepo.WithTx(tx).CountByUser(ctx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return ErrUserHasOrders
		}

		if err := s.userRepo.WithTx(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserHasOrders) || errors.Is(err, ErrUserNotFound) {
			logger.Warn("Cannot delete user", map[string]interface{}{
				"user_id": id,
				"reason":  err.Error(),
			})
		} else {
			logger.Error("Failed to delete user", err, map[string]interface{}{
				"user_id": id,
			})
		}
		return err
	}
	return nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Authentication failed: unknown email", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Authentication failed: wrong password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
