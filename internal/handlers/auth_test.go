package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/database"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/services"
)

// AuthHandlerTestSuite defines the test suite for AuthHandler
type AuthHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	authService *services.AuthService
	router      *gin.Engine
}

// SetupTest runs before each test
func (suite *AuthHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.APIKey{})
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.authService = services.NewAuthService(
		repository.NewUserRepository(suite.db),
		repository.NewAPIKeyRepository(suite.db),
	)
	handler := NewAuthHandler(suite.authService)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	auth := suite.router.Group("/api/auth")
	auth.POST("/signup", handler.Signup)
	auth.POST("/login", handler.Login)
	auth.GET("/api-keys", middleware.RequireAPIKey(), handler.GetAPIKeys)
	auth.POST("/api-keys/regenerate-primary", middleware.RequireAPIKey(), handler.RegeneratePrimaryKey)
	auth.POST("/api-keys/regenerate-secondary", middleware.RequireAPIKey(), handler.RegenerateSecondaryKey)
}

// TearDownTest runs after each test
func (suite *AuthHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthHandlerTestSuite) post(url, apiKey string, payload interface{}) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		suite.Require().NoError(err)
	}

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(constants.APIKeyHeader, apiKey)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

type keyPairResponse struct {
	PrimaryKey   string `json:"primary_key"`
	SecondaryKey string `json:"secondary_key"`
}

type signupResponse struct {
	User struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	APIKeys keyPairResponse `json:"api_keys"`
}

// TestSignup_ReturnsKeyPair tests that signup issues two distinct prefixed
// secrets
func (suite *AuthHandlerTestSuite) TestSignup_ReturnsKeyPair() {
	w := suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "supersecret"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var response signupResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(suite.T(), "alice", response.User.Username)
	assert.True(suite.T(), strings.HasPrefix(response.APIKeys.PrimaryKey, constants.APIKeyPrefix))
	assert.True(suite.T(), strings.HasPrefix(response.APIKeys.SecondaryKey, constants.APIKeyPrefix))
	assert.NotEqual(suite.T(), response.APIKeys.PrimaryKey, response.APIKeys.SecondaryKey)
}

// TestSignup_DuplicateUsername tests the conflict answer
func (suite *AuthHandlerTestSuite) TestSignup_DuplicateUsername() {
	w := suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "supersecret"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "supersecret"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestSignup_ShortPassword tests the password length rule
func (suite *AuthHandlerTestSuite) TestSignup_ShortPassword() {
	w := suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "short"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestLogin tests credential verification
func (suite *AuthHandlerTestSuite) TestLogin() {
	suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "supersecret"})

	w := suite.post("/api/auth/login", "", gin.H{"username": "alice", "password": "supersecret"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var response signupResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(suite.T(), strings.HasPrefix(response.APIKeys.PrimaryKey, constants.APIKeyPrefix))

	w = suite.post("/api/auth/login", "", gin.H{"username": "alice", "password": "wrongpassword"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestGetAPIKeys_Masked tests that the key listing never exposes the plain
// secrets
func (suite *AuthHandlerTestSuite) TestGetAPIKeys_Masked() {
	w := suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "supersecret"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created signupResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/api-keys", nil)
	req.Header.Set(constants.APIKeyHeader, created.APIKeys.PrimaryKey)
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	suite.Require().Equal(http.StatusOK, rec.Code)

	var masked keyPairResponse
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &masked))
	assert.NotEqual(suite.T(), created.APIKeys.PrimaryKey, masked.PrimaryKey)
	assert.Contains(suite.T(), masked.PrimaryKey, "...")
	assert.Contains(suite.T(), masked.SecondaryKey, "...")
}

// TestRegeneratePrimaryKey tests that rotation replaces one secret while
// the other keeps authenticating
func (suite *AuthHandlerTestSuite) TestRegeneratePrimaryKey() {
	w := suite.post("/api/auth/signup", "", gin.H{"username": "alice", "password": "supersecret"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created signupResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = suite.post("/api/auth/api-keys/regenerate-primary", created.APIKeys.PrimaryKey, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var rotation map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &rotation))
	newKey := rotation["key"]
	assert.Equal(suite.T(), "primary", rotation["key_type"])
	assert.NotEqual(suite.T(), created.APIKeys.PrimaryKey, newKey)

	// the old primary is dead, the new one and the secondary both work
	w = suite.post("/api/auth/api-keys/regenerate-primary", created.APIKeys.PrimaryKey, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.post("/api/auth/api-keys/regenerate-secondary", newKey, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.post("/api/auth/api-keys/regenerate-secondary", created.APIKeys.SecondaryKey, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestSuite runs the test suite
func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
