package repository

import (
	"github.com/recallhq/memory-api/internal/models"
	"gorm.io/gorm"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Create creates a new organization
func (r *GormOrganizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// ListAdministeredBy lists organizations the user is the admin of
func (r *GormOrganizationRepository) ListAdministeredBy(userID uint64) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := r.db.Where("admin_id = ?", userID).
		Order("created_at DESC").
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// Delete removes an organization, its teams and their memberships in a
// transaction
func (r *GormOrganizationRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var teamIDs []uint64
		if err := tx.Model(&models.Team{}).
			Where("organization_id = ?", id).
			Pluck("id", &teamIDs).Error; err != nil {
			return err
		}

		if len(teamIDs) > 0 {
			if err := tx.Where("team_id IN ?", teamIDs).
				Delete(&models.TeamMembership{}).Error; err != nil {
				return err
			}

			if err := tx.Where("organization_id = ?", id).
				Delete(&models.Team{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.Organization{}, id).Error
	})
}
