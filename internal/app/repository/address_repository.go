package repository

import (
	"context"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AddressRepository interface {
	WithTx(tx *gorm.DB) AddressRepository

	Create(ctx context.Context, address *model.UserAddress) error
	FindByUserAndID(ctx context.Context, userID, addressID uint) (*model.UserAddress, error)
	ListByUser(ctx context.Context, userID uint) ([]model.UserAddress, error)
	Update(ctx context.Context, address *model.UserAddress) error
	Delete(ctx context.Context, userID, addressID uint) error
	CountByUser(ctx context.Context, userID uint) (int64, error)

	// LockOwner locks the owning users row so default-address changes for
	// one user serialise, including while the user has no addresses yet.
	LockOwner(ctx context.Context, userID uint) error
	// ClearDefault unsets is_default on every address of the user except exceptID.
	ClearDefault(ctx context.Context, userID, exceptID uint) error
	MarkDefault(ctx context.Context, userID, addressID uint) error
	// FirstRemaining returns the lowest-id address of the user.
	FirstRemaining(ctx context.Context, userID uint) (*model.UserAddress, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) WithTx(tx *gorm.DB) AddressRepository {
	if tx == nil {
		return r
	}
	return &addressRepository{db: tx}
}

func (r *addressRepository) Create(ctx context.Context, address *model.UserAddress) error {
	logger.Debug("Creating address in database", map[string]interface{}{
		"user_id":    address.UserID,
		"city":       address.City,
		"is_default": address.IsDefault,
	})

	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		logger.Error("Failed to create address in database", err, map[string]interface{}{
			"user_id": address.UserID,
		})
		return err
	}

	logger.Debug("Address created in database", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    address.UserID,
	})
	return nil
}

func (r *addressRepository) FindByUserAndID(ctx context.Context, userID, addressID uint) (*model.UserAddress, error) {
	var address model.UserAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if err != nil {
		logger.Debug("Address not found", map[string]interface{}{
			"user_id":    userID,
			"address_id": addressID,
		})
		return nil, err
	}
	return &address, nil
}

func (r *addressRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserAddress, error) {
	logger.Debug("Finding addresses by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var addresses []model.UserAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").Order("id ASC").
		Find(&addresses).Error
	if err != nil {
		logger.Error("Failed to find addresses by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) Update(ctx context.Context, address *model.UserAddress) error {
	logger.Debug("Updating address in database", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    address.UserID,
	})

	if err := r.db.WithContext(ctx).Save(address).Error; err != nil {
		logger.Error("Failed to update address in database", err, map[string]interface{}{
			"address_id": address.ID,
		})
		return err
	}
	return nil
}

func (r *addressRepository) Delete(ctx context.Context, userID, addressID uint) error {
	logger.Debug("Deleting address from database", map[string]interface{}{
		"address_id": addressID,
		"user_id":    userID,
	})

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&model.UserAddress{})
	if result.Error != nil {
		logger.Error("Failed to delete address from database", result.Error, map[string]interface{}{
			"address_id": addressID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *addressRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserAddress{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *addressRepository) LockOwner(ctx context.Context, userID uint) error {
	var ids []uint
	return r.db.WithContext(ctx).Model(&model.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		Pluck("id", &ids).Error
}

func (r *addressRepository) ClearDefault(ctx context.Context, userID, exceptID uint) error {
	query := r.db.WithContext(ctx).Model(&model.UserAddress{}).
		Where("user_id = ? AND is_default = ?", userID, true)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Update("is_default", false).Error; err != nil {
		logger.Error("Failed to clear default addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}

func (r *addressRepository) MarkDefault(ctx context.Context, userID, addressID uint) error {
	result := r.db.WithContext(ctx).Model(&model.UserAddress{}).
		Where("id = ? AND user_id = ?", addressID, userID).
		Update("is_default", true)
	if result.Error != nil {
		logger.Error("Failed to mark default address", result.Error, map[string]interface{}{
			"user_id":    userID,
			"address_id": addressID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *addressRepository) FirstRemaining(ctx context.Context, userID uint) (*model.UserAddress, error) {
	var address model.UserAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}
