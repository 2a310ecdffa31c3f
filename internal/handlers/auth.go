package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/dto"
	apierrors "github.com/recallhq/memory-api/internal/errors"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/services"
)

// AuthHandler coordinates signup, login and API key management.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup registers a new user and returns their freshly issued API keys.
// This is the only time the plain secrets are shown together.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username string `json:"username" binding:"required,min=3,max=50"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"required"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, keys, err := h.authService.Signup(services.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":     dto.ToUserDTO(*user),
		"api_keys": dto.ToFullAPIKeysDTO(*keys),
	})
}

// Login verifies credentials and returns the user's API keys.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, keys, err := h.authService.Login(services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     dto.ToUserDTO(*user),
		"api_keys": dto.ToFullAPIKeysDTO(*keys),
	})
}

// GetAPIKeys returns the caller's key pair with the secrets masked.
func (h *AuthHandler) GetAPIKeys(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	keys, err := h.authService.GetKeys(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMaskedAPIKeysDTO(*keys))
}

// RegeneratePrimaryKey rotates the primary key; the secondary key keeps
// working during the rotation.
func (h *AuthHandler) RegeneratePrimaryKey(c *gin.Context) {
	h.regenerateKey(c, "primary", h.authService.RegeneratePrimaryKey)
}

// RegenerateSecondaryKey rotates the secondary key.
func (h *AuthHandler) RegenerateSecondaryKey(c *gin.Context) {
	h.regenerateKey(c, "secondary", h.authService.RegenerateSecondaryKey)
}

func (h *AuthHandler) regenerateKey(c *gin.Context, keyType string, regenerate func(uint64) (string, error)) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	newKey, err := regenerate(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":      newKey,
		"key_type": keyType,
		"message":  fmt.Sprintf("%s API key regenerated successfully", keyType),
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAPIKeysNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrFailedToHashPassword),
		errors.Is(err, services.ErrFailedToCreateUser),
		errors.Is(err, services.ErrFailedToCreateKeys):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
