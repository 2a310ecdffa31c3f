package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/recallhq/memory-api/internal/errors"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/services"
	"github.com/recallhq/memory-api/internal/utils"
)

// MemoryHandler serves the memory CRUD endpoints for all three scopes.
// The scope-level authorization has already run in middleware by the time
// a team or organization handler is reached; user-scope records are
// always the caller's own.
type MemoryHandler struct {
	memoryService *services.MemoryService
}

// NewMemoryHandler creates a new MemoryHandler.
func NewMemoryHandler(memoryService *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{
		memoryService: memoryService,
	}
}

// CreateMemoryRequest is the body for creating a memory record
type CreateMemoryRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdateMemoryRequest is the body for updating a memory record
type UpdateMemoryRequest struct {
	Content string `json:"content" binding:"required"`
}

// User scope: the owner is always the authenticated user.

func (h *MemoryHandler) ListUserMemories(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}
	h.list(c, models.ScopeUser, userID)
}

func (h *MemoryHandler) CreateUserMemory(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}
	h.create(c, models.ScopeUser, userID)
}

func (h *MemoryHandler) GetUserMemory(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}
	h.get(c, models.ScopeUser, userID)
}

func (h *MemoryHandler) UpdateUserMemory(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}
	h.update(c, models.ScopeUser, userID)
}

func (h *MemoryHandler) DeleteUserMemory(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}
	h.delete(c, models.ScopeUser, userID)
}

// Team scope: the owner is the :team_id parameter, access checked by
// RequireTeamAccess.

func (h *MemoryHandler) ListTeamMemories(c *gin.Context) {
	teamID, ok := middleware.ParamID(c, "team_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}
	h.list(c, models.ScopeTeam, teamID)
}

func (h *MemoryHandler) CreateTeamMemory(c *gin.Context) {
	teamID, ok := middleware.ParamID(c, "team_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}
	h.create(c, models.ScopeTeam, teamID)
}

func (h *MemoryHandler) GetTeamMemory(c *gin.Context) {
	teamID, ok := middleware.ParamID(c, "team_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}
	h.get(c, models.ScopeTeam, teamID)
}

func (h *MemoryHandler) UpdateTeamMemory(c *gin.Context) {
	teamID, ok := middleware.ParamID(c, "team_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}
	h.update(c, models.ScopeTeam, teamID)
}

func (h *MemoryHandler) DeleteTeamMemory(c *gin.Context) {
	teamID, ok := middleware.ParamID(c, "team_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid team ID")
		return
	}
	h.delete(c, models.ScopeTeam, teamID)
}

// Organization scope: the owner is the :org_id parameter, access checked
// by RequireOrganizationAccess.

func (h *MemoryHandler) ListOrganizationMemories(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}
	h.list(c, models.ScopeOrganization, orgID)
}

func (h *MemoryHandler) CreateOrganizationMemory(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}
	h.create(c, models.ScopeOrganization, orgID)
}

func (h *MemoryHandler) GetOrganizationMemory(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}
	h.get(c, models.ScopeOrganization, orgID)
}

func (h *MemoryHandler) UpdateOrganizationMemory(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}
	h.update(c, models.ScopeOrganization, orgID)
}

func (h *MemoryHandler) DeleteOrganizationMemory(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}
	h.delete(c, models.ScopeOrganization, orgID)
}

// Shared logic across the three scopes.

func (h *MemoryHandler) list(c *gin.Context, scope models.MemoryScope, ownerID uint64) {
	params := utils.GetPaginationParams(c)

	input := services.ListMemoriesInput{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.PageSize,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.SyncStatus(statusStr)
		switch status {
		case models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
			input.Status = &status
		default:
			apierrors.BadRequest(c, "Invalid status filter")
			return
		}
	}

	memories, total, err := h.memoryService.List(scope, ownerID, input)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch memories")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"memories": memories,
		"pagination": utils.PaginationResponse{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *MemoryHandler) create(c *gin.Context, scope models.MemoryScope, ownerID uint64) {
	var req CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	memory, err := h.memoryService.Create(c.Request.Context(), services.CreateMemoryInput{
		Scope:   scope,
		OwnerID: ownerID,
		Content: req.Content,
	})
	if err != nil {
		respondMemoryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, memory)
}

func (h *MemoryHandler) get(c *gin.Context, scope models.MemoryScope, ownerID uint64) {
	memoryID, ok := middleware.ParamID(c, "memory_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid memory ID")
		return
	}

	memory, err := h.memoryService.Get(scope, ownerID, memoryID)
	if err != nil {
		respondMemoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, memory)
}

func (h *MemoryHandler) update(c *gin.Context, scope models.MemoryScope, ownerID uint64) {
	memoryID, ok := middleware.ParamID(c, "memory_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid memory ID")
		return
	}

	var req UpdateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	memory, err := h.memoryService.UpdateContent(c.Request.Context(), scope, ownerID, memoryID, req.Content)
	if err != nil {
		respondMemoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, memory)
}

func (h *MemoryHandler) delete(c *gin.Context, scope models.MemoryScope, ownerID uint64) {
	memoryID, ok := middleware.ParamID(c, "memory_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid memory ID")
		return
	}

	if err := h.memoryService.Delete(c.Request.Context(), scope, ownerID, memoryID); err != nil {
		respondMemoryError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondMemoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMemoryNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrContentRequired),
		errors.Is(err, services.ErrInvalidScope):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
