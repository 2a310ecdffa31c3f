package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recallhq/memory-api/internal/dto"
	apierrors "github.com/recallhq/memory-api/internal/errors"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/services"
)

// TeamHandler serves team and membership management endpoints. All routes
// are gated on the organization admin by middleware.
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// ListTeams returns the teams of the organization.
func (h *TeamHandler) ListTeams(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}

	teams, err := h.teamService.ListTeams(orgID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	teamDTOs := make([]dto.TeamDTO, len(teams))
	for i, team := range teams {
		teamDTOs[i] = dto.ToTeamDTO(team, len(team.Memberships))
	}

	c.JSON(http.StatusOK, gin.H{"teams": teamDTOs})
}

// CreateTeam creates a team in the organization.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}

	type CreateTeamRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	team, err := h.teamService.CreateTeam(services.CreateTeamInput{
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamDTO(*team, 0))
}

// GetTeam returns one team of the organization.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	orgID, teamID, ok := teamParams(c)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(orgID, teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, len(team.Memberships)))
}

// UpdateTeam updates a team's name and description.
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	orgID, teamID, ok := teamParams(c)
	if !ok {
		return
	}

	type UpdateTeamRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	team, err := h.teamService.UpdateTeam(orgID, teamID, services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, len(team.Memberships)))
}

// DeleteTeam removes a team, its memberships and its memories.
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	orgID, teamID, ok := teamParams(c)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(c.Request.Context(), orgID, teamID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMembers returns the members of a team.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	orgID, teamID, ok := teamParams(c)
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(orgID, teamID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	memberDTOs := make([]dto.TeamMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = dto.ToTeamMemberDTO(member)
	}

	c.JSON(http.StatusOK, gin.H{"members": memberDTOs})
}

// AddMember adds a user to a team.
func (h *TeamHandler) AddMember(c *gin.Context) {
	orgID, teamID, ok := teamParams(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	membership, err := h.teamService.AddMember(orgID, teamID, req.UserID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, membership)
}

// RemoveMember removes a user from a team.
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	orgID, teamID, ok := teamParams(c)
	if !ok {
		return
	}

	userID, ok := middleware.ParamID(c, "user_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.teamService.RemoveMember(orgID, teamID, userID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func teamParams(c *gin.Context) (orgID, teamID uint64, ok bool) {
	orgID, ok = middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return 0, 0, false
	}
	teamID, ok = middleware.ParamID(c, "team_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid team ID")
		return 0, 0, false
	}
	return orgID, teamID, true
}

func respondTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMembershipNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTeamNameRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrMembershipExists):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
