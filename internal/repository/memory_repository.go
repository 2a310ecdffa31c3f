package repository

import (
	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/database"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/utils"
)

// GormMemoryRepository is a GORM implementation of MemoryRepository
type GormMemoryRepository struct {
	db *gorm.DB
}

// NewMemoryRepository creates a new MemoryRepository
func NewMemoryRepository(db *gorm.DB) MemoryRepository {
	return &GormMemoryRepository{db: db}
}

// Create inserts a new memory record
func (r *GormMemoryRepository) Create(memory *models.Memory) error {
	return r.db.Create(memory).Error
}

// FindByID finds a memory record by ID regardless of owner
func (r *GormMemoryRepository) FindByID(id uint64) (*models.Memory, error) {
	var memory models.Memory
	if err := r.db.First(&memory, id).Error; err != nil {
		return nil, err
	}
	return &memory, nil
}

// FindOwned finds a memory record scoped to a specific owner
func (r *GormMemoryRepository) FindOwned(scope models.MemoryScope, ownerID, id uint64) (*models.Memory, error) {
	var memory models.Memory
	if err := r.db.Where("scope = ? AND owner_id = ?", scope, ownerID).
		First(&memory, id).Error; err != nil {
		return nil, err
	}
	return &memory, nil
}

// List retrieves memory records for one owner with filtering and pagination
func (r *GormMemoryRepository) List(filter MemoryFilter) ([]models.Memory, int64, error) {
	var memories []models.Memory

	query := r.db.Model(&models.Memory{}).
		Where("scope = ? AND owner_id = ?", filter.Scope, filter.OwnerID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("content LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Scopes(database.NewestFirst)
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Offset:   (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.Find(&memories).Error; err != nil {
		return nil, 0, err
	}

	return memories, total, nil
}

// UpdateContent writes new content for a record
func (r *GormMemoryRepository) UpdateContent(id uint64, content string) error {
	return r.db.Model(&models.Memory{}).
		Where("id = ?", id).
		Update("content", content).Error
}

// Delete removes a memory record permanently
func (r *GormMemoryRepository) Delete(id uint64) error {
	return r.db.Unscoped().Delete(&models.Memory{}, id).Error
}

// SetProcessing marks a record as being synced
func (r *GormMemoryRepository) SetProcessing(id uint64) error {
	return r.db.Model(&models.Memory{}).
		Where("id = ?", id).
		Update("status", models.StatusProcessing).Error
}

// SetCompleted marks a record as synced and clears the last error. The
// external ID is stored only when the sync assigned one (create tasks);
// update tasks leave the existing ID untouched.
func (r *GormMemoryRepository) SetCompleted(id uint64, externalID *string) error {
	updates := map[string]interface{}{
		"status":        models.StatusCompleted,
		"error_message": "",
	}
	if externalID != nil {
		updates["external_id"] = *externalID
	}
	return r.db.Model(&models.Memory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetFailed marks a record as failed with the last error message. A
// previously assigned external ID is preserved.
func (r *GormMemoryRepository) SetFailed(id uint64, message string) error {
	return r.db.Model(&models.Memory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": message,
		}).Error
}
