package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/internal/app/repository"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidAddress  = errors.New("invalid address")
)

type AddressInput struct {
	AddressLine1 string            `json:"address_line1" binding:"required"`
	AddressLine2 string            `json:"address_line2"`
	City         string            `json:"city" binding:"required"`
	State        string            `json:"state"`
	PostalCode   string            `json:"postal_code" binding:"required"`
	Country      string            `json:"country"`
	AddressType  model.AddressType `json:"address_type"`
	// IsDefault makes the address the user's default. false on update leaves
	// the flag as it is.
	IsDefault bool `json:"is_default"`
}

// AddressService keeps at most one default address per user, and exactly one
// whenever the user has any address.
type AddressService interface {
	ListAddresses(ctx context.Context, userID uint) ([]model.UserAddress, error)
	AddAddress(ctx context.Context, userID uint, input AddressInput) (*model.UserAddress, error)
	UpdateAddress(ctx context.Context, userID, addressID uint, input AddressInput) (*model.UserAddress, error)
	DeleteAddress(ctx context.Context, userID, addressID uint) error
	SetDefaultAddress(ctx context.Context, userID, addressID uint) (*model.UserAddress, error)
}

type addressService struct {
	db          *gorm.DB
	addressRepo repository.AddressRepository
}

func NewAddressService(db *gorm.DB, addressRepo repository.AddressRepository) AddressService {
	return &addressService{
		db:          db,
		addressRepo: addressRepo,
	}
}

func (s *addressService) ListAddresses(ctx context.Context, userID uint) ([]model.UserAddress, error) {
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("Failed to list addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	if addresses == nil {
		addresses = []model.UserAddress{}
	}
	return addresses, nil
}

func (s *addressService) AddAddress(ctx context.Context, userID uint, input AddressInput) (*model.UserAddress, error) {
	logger.Info("Adding address", map[string]interface{}{
		"user_id":    userID,
		"is_default": input.IsDefault,
	})

	var address *model.UserAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		address, err = addAddressTx(ctx, s.addressRepo.WithTx(tx), userID, input)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidAddress) {
			logger.Warn("Invalid address input", map[string]interface{}{
				"user_id": userID,
			})
		} else {
			logger.Error("Failed to add address", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}

	logger.Info("Address added", map[string]interface{}{
		"user_id":    userID,
		"address_id": address.ID,
		"is_default": address.IsDefault,
	})
	return address, nil
}

// addAddressTx inserts an address. The first address of a user always
// becomes the default.
func addAddressTx(ctx context.Context, repo repository.AddressRepository, userID uint, input AddressInput) (*model.UserAddress, error) {
	address := &model.UserAddress{UserID: userID}
	if err := applyAddressInput(address, input); err != nil {
		return nil, err
	}

	if err := repo.LockOwner(ctx, userID); err != nil {
		return nil, err
	}
	count, err := repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	address.IsDefault = input.IsDefault || count == 0
	if address.IsDefault {
		if err := repo.ClearDefault(ctx, userID, 0); err != nil {
			return nil, err
		}
	}
	if err := repo.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *addressService) UpdateAddress(ctx context.Context, userID, addressID uint, input AddressInput) (*model.UserAddress, error) {
	logger.Info("Updating address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	var address *model.UserAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.addressRepo.WithTx(tx)
		if err := repo.LockOwner(ctx, userID); err != nil {
			return err
		}

		var err error
		address, err = repo.FindByUserAndID(ctx, userID, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		wasDefault := address.IsDefault
		if err := applyAddressInput(address, input); err != nil {
			return err
		}
		address.IsDefault = wasDefault || input.IsDefault
		if address.IsDefault && !wasDefault {
			if err := repo.ClearDefault(ctx, userID, address.ID); err != nil {
				return err
			}
		}
		return repo.Update(ctx, address)
	})
	if err != nil {
		logAddressFailure("Failed to update address", err, userID, addressID)
		return nil, err
	}
	return address, nil
}

// DeleteAddress removes the address and, when it was the default, promotes
// the oldest remaining address.
func (s *addressService) DeleteAddress(ctx context.Context, userID, addressID uint) error {
	logger.Info("Deleting address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.addressRepo.WithTx(tx)
		if err := repo.LockOwner(ctx, userID); err != nil {
			return err
		}

		address, err := repo.FindByUserAndID(ctx, userID, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return err
		}
		if err := repo.Delete(ctx, userID, addressID); err != nil {
			return err
		}
		if !address.IsDefault {
			return nil
		}

		next, err := repo.FirstRemaining(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return repo.MarkDefault(ctx, userID, next.ID)
	})
	if err != nil {
		logAddressFailure("Failed to delete address", err, userID, addressID)
		return err
	}
	return nil
}

func (s *addressService) SetDefaultAddress(ctx context.Context, userID, addressID uint) (*model.UserAddress, error) {
	logger.Info("Setting default address", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})

	var address *model.UserAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.addressRepo.WithTx(tx)
		if err := repo.LockOwner(ctx, userID); err != nil {
			return err
		}

		var err error
		address, err = repo.FindByUserAndID(ctx, userID, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return err
		}
		if err := repo.ClearDefault(ctx, userID, addressID); err != nil {
			return err
		}
		address.IsDefault = true
		return repo.MarkDefault(ctx, userID, addressID)
	})
	if err != nil {
		logAddressFailure("Failed to set default address", err, userID, addressID)
		return nil, err
	}
	return address, nil
}

func applyAddressInput(address *model.UserAddress, input AddressInput) error {
	line1 := strings.TrimSpace(input.AddressLine1)
	city := strings.TrimSpace(input.City)
	postal := strings.TrimSpace(input.PostalCode)
	if line1 == "" || city == "" || postal == "" {
		return ErrInvalidAddress
	}

	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = "US"
	}
	if len(country) != 2 {
		return ErrInvalidAddress
	}

	addressType := input.AddressType
	if addressType == "" {
		addressType = model.AddressTypeBoth
	}
	if !addressType.Valid() {
		return ErrInvalidAddress
	}

	address.AddressLine1 = line1
	address.AddressLine2 = strings.TrimSpace(input.AddressLine2)
	address.City = city
	address.State = strings.TrimSpace(input.State)
	address.PostalCode = postal
	address.Country = country
	address.AddressType = addressType
	return nil
}

func logAddressFailure(msg string, err error, userID, addressID uint) {
	fields := map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	}
	if errors.Is(err, ErrAddressNotFound) || errors.Is(err, ErrInvalidAddress) {
		fields["reason"] = err.Error()
		logger.Warn(msg, fields)
		return
	}
	logger.Error(msg, err, fields)
}
