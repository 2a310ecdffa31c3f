package repository

import (
	"github.com/recallhq/memory-api/internal/models"
	"gorm.io/gorm"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// Create creates a new team
func (r *GormTeamRepository) Create(team *models.Team) error {
	return r.db.Create(team).Error
}

// FindByID finds a team by ID
func (r *GormTeamRepository) FindByID(id uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindInOrganization finds a team ensuring it belongs to the organization
func (r *GormTeamRepository) FindInOrganization(organizationID, teamID uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.Preload("Memberships").
		Where("organization_id = ?", organizationID).
		First(&team, teamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// ListByOrganization lists teams of an organization, newest first
func (r *GormTeamRepository) ListByOrganization(organizationID uint64) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.Preload("Memberships").
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// Update updates a team
func (r *GormTeamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

// Delete removes a team and its memberships in a transaction
func (r *GormTeamRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMembership{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Team{}, id).Error
	})
}

// AddMember adds a user to a team
func (r *GormTeamRepository) AddMember(membership *models.TeamMembership) error {
	return r.db.Create(membership).Error
}

// RemoveMember removes a user from a team
func (r *GormTeamRepository) RemoveMember(teamID, userID uint64) error {
	return r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMembership{}).Error
}

// FindMembership finds a specific team membership
func (r *GormTeamRepository) FindMembership(teamID, userID uint64) (*models.TeamMembership, error) {
	var membership models.TeamMembership
	if err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListMembers lists all memberships of a team with users preloaded
func (r *GormTeamRepository) ListMembers(teamID uint64) ([]models.TeamMembership, error) {
	var memberships []models.TeamMembership
	if err := r.db.Preload("User").
		Where("team_id = ?", teamID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// HasMembershipInOrganization reports whether the user belongs to any team
// of the organization
func (r *GormTeamRepository) HasMembershipInOrganization(userID, organizationID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.TeamMembership{}).
		Joins("JOIN teams ON teams.id = team_memberships.team_id").
		Where("team_memberships.user_id = ? AND teams.organization_id = ?", userID, organizationID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
