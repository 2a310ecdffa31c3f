package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/recallhq/memory-api/internal/database"
	apierrors "github.com/recallhq/memory-api/internal/errors"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/services"
)

func newAuthz() *services.AuthzService {
	db := database.GetDB()
	return services.NewAuthzService(
		repository.NewTeamRepository(db),
		repository.NewOrganizationRepository(db),
	)
}

// ParamID parses a numeric path parameter.
func ParamID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// RequireTeamAccess checks the team-scope rule for the :team_id parameter:
// the actor must hold a membership for the team or administer its
// organization. Denials answer 404 to avoid leaking team existence.
func RequireTeamAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := ParamID(c, "team_id")
		if !ok {
			apierrors.BadRequest(c, "Invalid team ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		allowed, err := newAuthz().CanAccessTeam(userID, teamID)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !allowed {
			apierrors.NotFound(c, "Team not found")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireOrganizationAccess checks the organization-scope rule for the
// :org_id parameter: the actor must be the admin or belong to any team of
// the organization. Denials answer 404.
func RequireOrganizationAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := ParamID(c, "org_id")
		if !ok {
			apierrors.BadRequest(c, "Invalid organization ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		allowed, err := newAuthz().CanAccessOrganization(userID, orgID)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !allowed {
			apierrors.NotFound(c, "Organization not found")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireOrganizationAdmin gates management actions on the :org_id
// parameter: only the organization's admin passes. Membership alone is
// not enough; a non-admin member gets 403 rather than 404 because the
// access rule already admitted them to the organization.
func RequireOrganizationAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := ParamID(c, "org_id")
		if !ok {
			apierrors.BadRequest(c, "Invalid organization ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		admin, err := newAuthz().IsOrganizationAdmin(userID, orgID)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !admin {
			apierrors.Forbidden(c, "Only the organization admin can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}
