package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/database"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/mirror"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/services"
)

// stubSyncClient answers every external call successfully with a fixed ID.
type stubSyncClient struct {
	externalID string
	deleted    []string
}

func (c *stubSyncClient) Add(ctx context.Context, ownerKey, content string) (string, error) {
	return c.externalID, nil
}

func (c *stubSyncClient) Update(ctx context.Context, externalID, content string) error {
	return nil
}

func (c *stubSyncClient) Delete(ctx context.Context, externalID string) error {
	c.deleted = append(c.deleted, externalID)
	return nil
}

// MemoryHandlerTestSuite defines the test suite for MemoryHandler
type MemoryHandlerTestSuite struct {
	suite.Suite
	db            *gorm.DB
	queue         *mirror.ChanQueue
	memoryService *services.MemoryService
	authService   *services.AuthService
	router        *gin.Engine
}

// SetupTest runs before each test
func (suite *MemoryHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Organization{},
		&models.Team{},
		&models.TeamMembership{},
		&models.Memory{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.queue = mirror.NewChanQueue(16)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.memoryService = services.NewMemoryService(repository.NewMemoryRepository(suite.db), suite.queue, logger)
	suite.authService = services.NewAuthService(
		repository.NewUserRepository(suite.db),
		repository.NewAPIKeyRepository(suite.db),
	)

	handler := NewMemoryHandler(suite.memoryService)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	memories := suite.router.Group("/api/memories")
	memories.Use(middleware.RequireAPIKey())
	{
		me := memories.Group("/users/me")
		me.GET("", handler.ListUserMemories)
		me.POST("", handler.CreateUserMemory)
		me.GET("/:memory_id", handler.GetUserMemory)
		me.PATCH("/:memory_id", handler.UpdateUserMemory)
		me.DELETE("/:memory_id", handler.DeleteUserMemory)

		teams := memories.Group("/teams/:team_id")
		teams.Use(middleware.RequireTeamAccess())
		teams.GET("", handler.ListTeamMemories)
		teams.POST("", handler.CreateTeamMemory)
		teams.GET("/:memory_id", handler.GetTeamMemory)
		teams.PATCH("/:memory_id", handler.UpdateTeamMemory)
		teams.DELETE("/:memory_id", handler.DeleteTeamMemory)

		orgs := memories.Group("/orgs/:org_id")
		orgs.Use(middleware.RequireOrganizationAccess())
		orgs.GET("", handler.ListOrganizationMemories)
		orgs.POST("", handler.CreateOrganizationMemory)
		orgs.GET("/:memory_id", handler.GetOrganizationMemory)
	}
}

// TearDownTest runs after each test
func (suite *MemoryHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// signupUser registers a user and returns it with a working API key
func (suite *MemoryHandlerTestSuite) signupUser(username string) (*models.User, string) {
	user, keys, err := suite.authService.Signup(services.SignupInput{
		Username: username,
		Password: "supersecret",
	})
	suite.Require().NoError(err)
	return user, keys.PrimaryKey
}

func (suite *MemoryHandlerTestSuite) createTeamWithOrg(adminID uint64) (*models.Organization, *models.Team) {
	org := &models.Organization{Name: "Acme", AdminID: adminID}
	suite.Require().NoError(suite.db.Create(org).Error)
	team := &models.Team{Name: "Platform", OrganizationID: org.ID}
	suite.Require().NoError(suite.db.Create(team).Error)
	return org, team
}

func (suite *MemoryHandlerTestSuite) addMembership(teamID, userID uint64) {
	membership := &models.TeamMembership{TeamID: teamID, UserID: userID, JoinedAt: time.Now()}
	suite.Require().NoError(suite.db.Create(membership).Error)
}

func (suite *MemoryHandlerTestSuite) request(method, url, apiKey string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		suite.Require().NoError(err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(constants.APIKeyHeader, apiKey)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// drainOne processes the next queued job against a stub external service
func (suite *MemoryHandlerTestSuite) drainOne(client mirror.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := suite.queue.Dequeue(ctx)
	suite.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := mirror.NewDispatcher(nil, client, suite.memoryService, logger, mirror.DispatcherOptions{
		Workers:     1,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	})
	dispatcher.Process(job)
}

// TestTeamMemoryLifecycle walks a team memory from creation through sync,
// update and access checks by different actors
func (suite *MemoryHandlerTestSuite) TestTeamMemoryLifecycle() {
	admin, adminKey := suite.signupUser("admin")
	member, memberKey := suite.signupUser("member")
	_, outsiderKey := suite.signupUser("outsider")

	_, team := suite.createTeamWithOrg(admin.ID)
	suite.addMembership(team.ID, member.ID)

	base := fmt.Sprintf("/api/memories/teams/%d", team.ID)

	// member creates a team memory; it starts pending with a queued job
	w := suite.request(http.MethodPost, base, memberKey, gin.H{"content": "hello"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created models.Memory
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(suite.T(), models.StatusPending, created.Status)
	assert.Nil(suite.T(), created.ExternalID)
	suite.Require().Equal(1, suite.queue.Len())

	// the worker syncs it
	suite.drainOne(&stubSyncClient{externalID: "ext-42"})

	w = suite.request(http.MethodGet, fmt.Sprintf("%s/%d", base, created.ID), memberKey, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var synced models.Memory
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &synced))
	assert.Equal(suite.T(), models.StatusCompleted, synced.Status)
	suite.Require().NotNil(synced.ExternalID)
	assert.Equal(suite.T(), "ext-42", *synced.ExternalID)

	// updating the mirrored record queues exactly one update job
	w = suite.request(http.MethodPatch, fmt.Sprintf("%s/%d", base, created.ID), memberKey, gin.H{"content": "hello world"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Require().Equal(1, suite.queue.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := suite.queue.Dequeue(ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), mirror.OpUpdate, job.Op)
	assert.Equal(suite.T(), "ext-42", job.ExternalID)
	assert.Equal(suite.T(), "hello world", job.Content)

	// the org admin reaches the team without a membership
	w = suite.request(http.MethodGet, base, adminKey, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// an outsider cannot tell the team exists
	w = suite.request(http.MethodGet, base, outsiderKey, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	// deleting the mirrored record queues a delete job with the captured ID
	w = suite.request(http.MethodDelete, fmt.Sprintf("%s/%d", base, created.ID), memberKey, nil)
	suite.Require().Equal(http.StatusNoContent, w.Code)

	client := &stubSyncClient{}
	suite.drainOne(client)
	assert.Equal(suite.T(), []string{"ext-42"}, client.deleted)
}

// TestUserMemoryCRUD tests the user-scope endpoints end to end
func (suite *MemoryHandlerTestSuite) TestUserMemoryCRUD() {
	_, key := suite.signupUser("alice")

	w := suite.request(http.MethodPost, "/api/memories/users/me", key, gin.H{"content": "my note"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created models.Memory
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(suite.T(), models.ScopeUser, created.Scope)

	w = suite.request(http.MethodGet, "/api/memories/users/me", key, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(suite.T(), response, "memories")
	assert.Contains(suite.T(), response, "pagination")
	assert.Len(suite.T(), response["memories"], 1)

	w = suite.request(http.MethodDelete, fmt.Sprintf("/api/memories/users/me/%d", created.ID), key, nil)
	suite.Require().Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/memories/users/me/%d", created.ID), key, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestUserMemory_IsolatedPerUser tests that user-scope records are not
// visible to other users
func (suite *MemoryHandlerTestSuite) TestUserMemory_IsolatedPerUser() {
	_, aliceKey := suite.signupUser("alice")
	_, bobKey := suite.signupUser("bob")

	w := suite.request(http.MethodPost, "/api/memories/users/me", aliceKey, gin.H{"content": "private"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var created models.Memory
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/memories/users/me/%d", created.ID), bobKey, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestOrganizationMemory_MemberAccess tests org-scope access for team
// members and denial for strangers
func (suite *MemoryHandlerTestSuite) TestOrganizationMemory_MemberAccess() {
	admin, adminKey := suite.signupUser("admin")
	member, memberKey := suite.signupUser("member")
	_, outsiderKey := suite.signupUser("outsider")

	org, team := suite.createTeamWithOrg(admin.ID)
	suite.addMembership(team.ID, member.ID)

	base := fmt.Sprintf("/api/memories/orgs/%d", org.ID)

	w := suite.request(http.MethodPost, base, adminKey, gin.H{"content": "org wide"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.request(http.MethodGet, base, memberKey, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, base, outsiderKey, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestListMemories_Filters tests the status filter and search parameter
func (suite *MemoryHandlerTestSuite) TestListMemories_Filters() {
	_, key := suite.signupUser("alice")

	for _, content := range []string{"grocery list", "meeting notes"} {
		w := suite.request(http.MethodPost, "/api/memories/users/me", key, gin.H{"content": content})
		suite.Require().Equal(http.StatusCreated, w.Code)
	}

	w := suite.request(http.MethodGet, "/api/memories/users/me?status=pending", key, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response["memories"], 2)

	w = suite.request(http.MethodGet, "/api/memories/users/me?search=grocery", key, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(suite.T(), response["memories"], 1)

	w = suite.request(http.MethodGet, "/api/memories/users/me?status=bogus", key, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateMemory_EmptyContent tests rejection of blank content
func (suite *MemoryHandlerTestSuite) TestCreateMemory_EmptyContent() {
	_, key := suite.signupUser("alice")

	w := suite.request(http.MethodPost, "/api/memories/users/me", key, gin.H{"content": ""})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), 0, suite.queue.Len())
}

// TestMemories_RequireAPIKey tests that the endpoints reject missing and
// unknown keys
func (suite *MemoryHandlerTestSuite) TestMemories_RequireAPIKey() {
	w := suite.request(http.MethodGet, "/api/memories/users/me", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodGet, "/api/memories/users/me", "mem_bogus", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestSuite runs the test suite
func TestMemoryHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryHandlerTestSuite))
}
