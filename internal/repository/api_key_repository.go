package repository

import (
	"github.com/recallhq/memory-api/internal/models"
	"gorm.io/gorm"
)

// GormAPIKeyRepository is a GORM implementation of APIKeyRepository
type GormAPIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &GormAPIKeyRepository{db: db}
}

// FindByUserID finds the key pair of a user
func (r *GormAPIKeyRepository) FindByUserID(userID uint64) (*models.APIKey, error) {
	var keys models.APIKey
	if err := r.db.Where("user_id = ?", userID).First(&keys).Error; err != nil {
		return nil, err
	}
	return &keys, nil
}

// FindByKey finds a key pair where either secret matches, with the owning
// user preloaded
func (r *GormAPIKeyRepository) FindByKey(key string) (*models.APIKey, error) {
	var keys models.APIKey
	if err := r.db.Preload("User").
		Where("primary_key = ? OR secondary_key = ?", key, key).
		First(&keys).Error; err != nil {
		return nil, err
	}
	return &keys, nil
}

// Update updates a key pair
func (r *GormAPIKeyRepository) Update(keys *models.APIKey) error {
	return r.db.Save(keys).Error
}
