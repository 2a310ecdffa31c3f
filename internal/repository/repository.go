package repository

import (
	"github.com/recallhq/memory-api/internal/models"
)

// MemoryFilter holds filtering options for listing memory records
type MemoryFilter struct {
	Scope    models.MemoryScope
	OwnerID  uint64
	Status   *models.SyncStatus
	Search   string
	Page     int
	PageSize int
}

// MemoryRepository defines the interface for memory record data access
type MemoryRepository interface {
	// Create inserts a new memory record
	Create(memory *models.Memory) error

	// FindByID finds a memory record by ID regardless of owner
	FindByID(id uint64) (*models.Memory, error)

	// FindOwned finds a memory record scoped to a specific owner
	FindOwned(scope models.MemoryScope, ownerID, id uint64) (*models.Memory, error)

	// List retrieves memory records for one owner with filtering and pagination,
	// newest first
	List(filter MemoryFilter) ([]models.Memory, int64, error)

	// UpdateContent writes new content for a record
	UpdateContent(id uint64, content string) error

	// Delete removes a memory record permanently
	Delete(id uint64) error

	// SetProcessing, SetCompleted and SetFailed are the internal mutation
	// path used by the sync dispatcher. They write status fields only and
	// never touch content, so they cannot re-trigger sync.
	SetProcessing(id uint64) error
	SetCompleted(id uint64, externalID *string) error
	SetFailed(id uint64, message string) error
}

// TeamRepository defines the interface for team and membership data access
type TeamRepository interface {
	// Create creates a new team
	Create(team *models.Team) error

	// FindByID finds a team by ID
	FindByID(id uint64) (*models.Team, error)

	// FindInOrganization finds a team ensuring it belongs to the organization
	FindInOrganization(organizationID, teamID uint64) (*models.Team, error)

	// ListByOrganization lists teams of an organization, newest first
	ListByOrganization(organizationID uint64) ([]models.Team, error)

	// Update updates a team
	Update(team *models.Team) error

	// Delete removes a team and its memberships
	Delete(id uint64) error

	// AddMember adds a user to a team
	AddMember(membership *models.TeamMembership) error

	// RemoveMember removes a user from a team
	RemoveMember(teamID, userID uint64) error

	// FindMembership finds a specific team membership
	FindMembership(teamID, userID uint64) (*models.TeamMembership, error)

	// ListMembers lists all memberships of a team with users preloaded
	ListMembers(teamID uint64) ([]models.TeamMembership, error)

	// HasMembershipInOrganization reports whether the user belongs to any
	// team of the organization
	HasMembershipInOrganization(userID, organizationID uint64) (bool, error)
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(id uint64) (*models.Organization, error)

	// ListAdministeredBy lists organizations the user is the admin of
	ListAdministeredBy(userID uint64) ([]models.Organization, error)

	// Delete removes an organization, its teams and their memberships
	Delete(id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// CreateWithAPIKeys creates a user and their API key pair in a single
	// transaction
	CreateWithAPIKeys(user *models.User, keys *models.APIKey) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}

// APIKeyRepository defines the interface for API key data access
type APIKeyRepository interface {
	// FindByUserID finds the key pair of a user
	FindByUserID(userID uint64) (*models.APIKey, error)

	// FindByKey finds a key pair where either the primary or the secondary
	// key matches, with the owning user preloaded
	FindByKey(key string) (*models.APIKey, error)

	// Update updates a key pair
	Update(keys *models.APIKey) error
}
