package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
)

var (
	ErrOrganizationNotFound     = errors.New("organization not found")
	ErrOrganizationNameRequired = errors.New("organization name cannot be empty")
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo       repository.OrganizationRepository
	teamRepo      repository.TeamRepository
	memoryService *MemoryService
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository, teamRepo repository.TeamRepository, memoryService *MemoryService) *OrganizationService {
	return &OrganizationService{
		orgRepo:       orgRepo,
		teamRepo:      teamRepo,
		memoryService: memoryService,
	}
}

// CreateOrganization creates a new organization administered by the actor.
func (s *OrganizationService) CreateOrganization(name string, adminID uint64) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrOrganizationNameRequired
	}

	org := &models.Organization{
		Name:    name,
		AdminID: adminID,
	}

	if err := s.orgRepo.Create(org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// ListAdministered returns the organizations the user is the admin of.
func (s *OrganizationService) ListAdministered(userID uint64) ([]models.Organization, error) {
	orgs, err := s.orgRepo.ListAdministeredBy(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// GetOrganization returns an organization by ID.
func (s *OrganizationService) GetOrganization(id uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// DeleteOrganization removes an organization together with its teams,
// memberships and memory records. Team and organization memories go
// through the record store so mirrored records still get their delete
// sync jobs.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, id uint64) error {
	org, err := s.GetOrganization(id)
	if err != nil {
		return err
	}

	teams, err := s.teamRepo.ListByOrganization(org.ID)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	for _, team := range teams {
		if err := s.memoryService.DeleteAllForOwner(ctx, models.ScopeTeam, team.ID); err != nil {
			return err
		}
	}

	if err := s.memoryService.DeleteAllForOwner(ctx, models.ScopeOrganization, org.ID); err != nil {
		return err
	}

	if err := s.orgRepo.Delete(org.ID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}
