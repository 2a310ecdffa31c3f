package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/recallhq/memory-api/internal/errors"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/services"
)

// OrganizationHandler serves organization endpoints.
type OrganizationHandler struct {
	orgService *services.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
	}
}

// ListOrganizations returns the organizations the caller administers.
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	orgs, err := h.orgService.ListAdministered(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch organizations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

// CreateOrganization creates an organization administered by the caller.
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateOrganizationRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.CreateOrganization(req.Name, userID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// GetOrganization returns one organization.
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}

	org, err := h.orgService.GetOrganization(orgID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// DeleteOrganization removes an organization with its teams, memberships
// and memories.
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	orgID, ok := middleware.ParamID(c, "org_id")
	if !ok {
		apierrors.BadRequest(c, "Invalid organization ID")
		return
	}

	if err := h.orgService.DeleteOrganization(c.Request.Context(), orgID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondOrganizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrganizationNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrOrganizationNameRequired):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
