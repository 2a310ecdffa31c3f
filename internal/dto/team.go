package dto

import (
	"time"

	"github.com/recallhq/memory-api/internal/models"
)

// TeamMemberDTO represents one membership row with user details
type TeamMemberDTO struct {
	UserID   uint64    `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// TeamDTO represents a team with its member count
type TeamDTO struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	OrganizationID uint64    `json:"organization_id"`
	MemberCount    int       `json:"member_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToTeamMemberDTO converts a membership to DTO
func ToTeamMemberDTO(membership models.TeamMembership) TeamMemberDTO {
	return TeamMemberDTO{
		UserID:   membership.UserID,
		Username: membership.User.Username,
		Email:    membership.User.Email,
		JoinedAt: membership.JoinedAt,
	}
}

// ToTeamDTO converts a team to DTO
func ToTeamDTO(team models.Team, memberCount int) TeamDTO {
	return TeamDTO{
		ID:             team.ID,
		Name:           team.Name,
		Description:    team.Description,
		OrganizationID: team.OrganizationID,
		MemberCount:    memberCount,
		CreatedAt:      team.CreatedAt,
		UpdatedAt:      team.UpdatedAt,
	}
}
