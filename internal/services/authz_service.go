package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
)

// AuthzService decides whether an actor may touch a memory record, team
// or organization. Each scope has a pre-object form (given only the scope
// identifiers from a request path, used before any record is loaded) and
// an object form; the object form delegates to the pre-object form
// evaluated on the record's owner identifiers, so the two cannot disagree.
//
// A missing target yields a plain denial rather than an error, which lets
// the request layer answer 404 without leaking existence.
type AuthzService struct {
	teamRepo repository.TeamRepository
	orgRepo  repository.OrganizationRepository
}

// NewAuthzService creates a new AuthzService.
func NewAuthzService(teamRepo repository.TeamRepository, orgRepo repository.OrganizationRepository) *AuthzService {
	return &AuthzService{
		teamRepo: teamRepo,
		orgRepo:  orgRepo,
	}
}

// CanActAsUser is the user-scope rule: only the owning user themselves.
func (s *AuthzService) CanActAsUser(actorID, ownerID uint64) bool {
	return actorID == ownerID
}

// CanAccessTeam is the team-scope rule: the actor holds a membership for
// the team, or administers the team's organization.
func (s *AuthzService) CanAccessTeam(actorID, teamID uint64) (bool, error) {
	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find team: %w", err)
	}

	if _, err := s.teamRepo.FindMembership(teamID, actorID); err == nil {
		return true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return s.IsOrganizationAdmin(actorID, team.OrganizationID)
}

// CanAccessOrganization is the organization-scope rule: the actor is the
// admin, or belongs to any team of the organization.
func (s *AuthzService) CanAccessOrganization(actorID, organizationID uint64) (bool, error) {
	org, err := s.orgRepo.FindByID(organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find organization: %w", err)
	}

	if org.AdminID == actorID {
		return true, nil
	}

	member, err := s.teamRepo.HasMembershipInOrganization(actorID, organizationID)
	if err != nil {
		return false, fmt.Errorf("failed to check organization membership: %w", err)
	}
	return member, nil
}

// IsOrganizationAdmin is the stricter management gate: team and
// membership management require administering that specific organization;
// membership alone is never enough.
func (s *AuthzService) IsOrganizationAdmin(actorID, organizationID uint64) (bool, error) {
	org, err := s.orgRepo.FindByID(organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find organization: %w", err)
	}
	return org.AdminID == actorID, nil
}

// CanAccessMemory is the object-level form for a loaded record. It
// evaluates the pre-object rule of the record's scope against the
// record's owner.
func (s *AuthzService) CanAccessMemory(actorID uint64, memory *models.Memory) (bool, error) {
	switch memory.Scope {
	case models.ScopeUser:
		return s.CanActAsUser(actorID, memory.OwnerID), nil
	case models.ScopeTeam:
		return s.CanAccessTeam(actorID, memory.OwnerID)
	case models.ScopeOrganization:
		return s.CanAccessOrganization(actorID, memory.OwnerID)
	default:
		return false, fmt.Errorf("unknown memory scope %q", memory.Scope)
	}
}
