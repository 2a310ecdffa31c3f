package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamNameRequired   = errors.New("team name cannot be empty")
	ErrMembershipExists   = errors.New("user is already a member of this team")
	ErrMembershipNotFound = errors.New("team membership not found")
)

// TeamService provides business logic for team and membership management.
// All of its mutations are management actions, gated on the organization
// admin by the request layer.
type TeamService struct {
	teamRepo      repository.TeamRepository
	orgRepo       repository.OrganizationRepository
	userRepo      repository.UserRepository
	memoryService *MemoryService
}

// NewTeamService creates a new TeamService.
func NewTeamService(teamRepo repository.TeamRepository, orgRepo repository.OrganizationRepository, userRepo repository.UserRepository, memoryService *MemoryService) *TeamService {
	return &TeamService{
		teamRepo:      teamRepo,
		orgRepo:       orgRepo,
		userRepo:      userRepo,
		memoryService: memoryService,
	}
}

// CreateTeamInput represents parameters to create a new team.
type CreateTeamInput struct {
	OrganizationID uint64
	Name           string
	Description    string
}

// CreateTeam creates a team inside an organization.
func (s *TeamService) CreateTeam(input CreateTeamInput) (*models.Team, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTeamNameRequired
	}

	if _, err := s.orgRepo.FindByID(input.OrganizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	team := &models.Team{
		Name:           input.Name,
		Description:    input.Description,
		OrganizationID: input.OrganizationID,
	}

	if err := s.teamRepo.Create(team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// ListTeams returns the teams of an organization, newest first.
func (s *TeamService) ListTeams(organizationID uint64) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByOrganization(organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// GetTeam returns a team, ensuring it belongs to the organization.
func (s *TeamService) GetTeam(organizationID, teamID uint64) (*models.Team, error) {
	team, err := s.teamRepo.FindInOrganization(organizationID, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

// UpdateTeamInput represents the mutable team fields.
type UpdateTeamInput struct {
	Name        *string
	Description *string
}

// UpdateTeam updates a team's name and description. The organization a
// team belongs to cannot change.
func (s *TeamService) UpdateTeam(organizationID, teamID uint64, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.GetTeam(organizationID, teamID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrTeamNameRequired
		}
		team.Name = *input.Name
	}
	if input.Description != nil {
		team.Description = *input.Description
	}

	if err := s.teamRepo.Update(team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	return team, nil
}

// DeleteTeam removes a team, its memberships and its memory records. The
// memories go through the record store so mirrored records still get
// their delete sync jobs.
func (s *TeamService) DeleteTeam(ctx context.Context, organizationID, teamID uint64) error {
	team, err := s.GetTeam(organizationID, teamID)
	if err != nil {
		return err
	}

	if err := s.memoryService.DeleteAllForOwner(ctx, models.ScopeTeam, team.ID); err != nil {
		return err
	}

	if err := s.teamRepo.Delete(team.ID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	return nil
}

// ListMembers lists the memberships of a team with users preloaded.
func (s *TeamService) ListMembers(organizationID, teamID uint64) ([]models.TeamMembership, error) {
	if _, err := s.GetTeam(organizationID, teamID); err != nil {
		return nil, err
	}

	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

// AddMember adds a user to a team.
func (s *TeamService) AddMember(organizationID, teamID, userID uint64) (*models.TeamMembership, error) {
	team, err := s.GetTeam(organizationID, teamID)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.teamRepo.FindMembership(team.ID, userID); err == nil {
		return nil, ErrMembershipExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	membership := &models.TeamMembership{
		TeamID:   team.ID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}

	if err := s.teamRepo.AddMember(membership); err != nil {
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	return membership, nil
}

// RemoveMember removes a user from a team.
func (s *TeamService) RemoveMember(organizationID, teamID, userID uint64) error {
	team, err := s.GetTeam(organizationID, teamID)
	if err != nil {
		return err
	}

	if _, err := s.teamRepo.FindMembership(team.ID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	if err := s.teamRepo.RemoveMember(team.ID, userID); err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	return nil
}
