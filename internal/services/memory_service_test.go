package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/mirror"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
)

// MemoryServiceTestSuite defines the test suite for MemoryService
type MemoryServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	queue   *mirror.ChanQueue
	service *MemoryService
}

// SetupTest runs before each test
func (suite *MemoryServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.Memory{})
	suite.Require().NoError(err)

	suite.queue = mirror.NewChanQueue(16)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.service = NewMemoryService(repository.NewMemoryRepository(suite.db), suite.queue, logger)
}

// TearDownTest runs after each test
func (suite *MemoryServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *MemoryServiceTestSuite) dequeue() mirror.Job {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job, err := suite.queue.Dequeue(ctx)
	suite.Require().NoError(err)
	return job
}

func (suite *MemoryServiceTestSuite) setExternal(id uint64, externalID string) {
	err := suite.db.Model(&models.Memory{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"external_id": externalID,
			"status":      models.StatusCompleted,
		}).Error
	suite.Require().NoError(err)
}

// TestCreate_EnqueuesCreateJob tests that a new record starts pending with
// exactly one create job queued
func (suite *MemoryServiceTestSuite) TestCreate_EnqueuesCreateJob() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.StatusPending, memory.Status)
	assert.Nil(suite.T(), memory.ExternalID)
	assert.Equal(suite.T(), 1, suite.queue.Len())

	job := suite.dequeue()
	assert.Equal(suite.T(), mirror.OpCreate, job.Op)
	assert.Equal(suite.T(), models.ScopeUser, job.Scope)
	assert.Equal(suite.T(), memory.ID, job.MemoryID)
}

// TestCreate_InvalidScope tests validation of the scope tag
func (suite *MemoryServiceTestSuite) TestCreate_InvalidScope() {
	_, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.MemoryScope("galaxy"),
		OwnerID: 1,
		Content: "hello",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidScope)
	assert.Equal(suite.T(), 0, suite.queue.Len())
}

// TestCreate_EmptyContent tests validation of blank content
func (suite *MemoryServiceTestSuite) TestCreate_EmptyContent() {
	_, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "   ",
	})
	assert.ErrorIs(suite.T(), err, ErrContentRequired)
	assert.Equal(suite.T(), 0, suite.queue.Len())
}

// TestUpdate_BeforeFirstSync tests that updating a record without an
// external mirror emits no job; the pending create picks up the content
func (suite *MemoryServiceTestSuite) TestUpdate_BeforeFirstSync() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue() // create job

	updated, err := suite.service.UpdateContent(context.Background(), models.ScopeUser, 1, memory.ID, "hello world")
	suite.Require().NoError(err)

	assert.Equal(suite.T(), "hello world", updated.Content)
	assert.Equal(suite.T(), 0, suite.queue.Len())
}

// TestUpdate_AfterSyncChangedContent tests that a mirrored record with new
// content emits exactly one update job
func (suite *MemoryServiceTestSuite) TestUpdate_AfterSyncChangedContent() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeTeam,
		OwnerID: 7,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()
	suite.setExternal(memory.ID, "ext-123")

	_, err = suite.service.UpdateContent(context.Background(), models.ScopeTeam, 7, memory.ID, "hello world")
	suite.Require().NoError(err)

	suite.Require().Equal(1, suite.queue.Len())
	job := suite.dequeue()
	assert.Equal(suite.T(), mirror.OpUpdate, job.Op)
	assert.Equal(suite.T(), "ext-123", job.ExternalID)
	assert.Equal(suite.T(), "hello world", job.Content)
}

// TestUpdate_AfterSyncSameContent tests that rewriting identical content
// emits nothing
func (suite *MemoryServiceTestSuite) TestUpdate_AfterSyncSameContent() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()
	suite.setExternal(memory.ID, "ext-123")

	_, err = suite.service.UpdateContent(context.Background(), models.ScopeUser, 1, memory.ID, "hello")
	suite.Require().NoError(err)

	assert.Equal(suite.T(), 0, suite.queue.Len())
}

// TestUpdate_DoesNotResetStatus tests that an owner update leaves the sync
// status untouched
func (suite *MemoryServiceTestSuite) TestUpdate_DoesNotResetStatus() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()
	suite.setExternal(memory.ID, "ext-123")

	_, err = suite.service.UpdateContent(context.Background(), models.ScopeUser, 1, memory.ID, "hello world")
	suite.Require().NoError(err)

	var stored models.Memory
	suite.Require().NoError(suite.db.First(&stored, memory.ID).Error)
	assert.Equal(suite.T(), models.StatusCompleted, stored.Status)
}

// TestUpdate_WrongOwner tests that another owner's record is not reachable
func (suite *MemoryServiceTestSuite) TestUpdate_WrongOwner() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()

	_, err = suite.service.UpdateContent(context.Background(), models.ScopeUser, 2, memory.ID, "stolen")
	assert.ErrorIs(suite.T(), err, ErrMemoryNotFound)
}

// TestDelete_Mirrored tests that deleting a mirrored record removes the row
// and queues a delete job carrying the captured external ID
func (suite *MemoryServiceTestSuite) TestDelete_Mirrored() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()
	suite.setExternal(memory.ID, "ext-123")

	err = suite.service.Delete(context.Background(), models.ScopeUser, 1, memory.ID)
	suite.Require().NoError(err)

	var count int64
	suite.db.Model(&models.Memory{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)

	suite.Require().Equal(1, suite.queue.Len())
	job := suite.dequeue()
	assert.Equal(suite.T(), mirror.OpDelete, job.Op)
	assert.Equal(suite.T(), "ext-123", job.ExternalID)
	assert.Equal(suite.T(), memory.ID, job.MemoryID)
}

// TestDelete_NeverSynced tests that deleting an unmirrored record emits no
// delete job
func (suite *MemoryServiceTestSuite) TestDelete_NeverSynced() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()

	err = suite.service.Delete(context.Background(), models.ScopeUser, 1, memory.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 0, suite.queue.Len())
}

// TestDeleteAllForOwner tests the cascade path used by team and
// organization deletion
func (suite *MemoryServiceTestSuite) TestDeleteAllForOwner() {
	for _, content := range []string{"one", "two", "three"} {
		_, err := suite.service.Create(context.Background(), CreateMemoryInput{
			Scope:   models.ScopeTeam,
			OwnerID: 5,
			Content: content,
		})
		suite.Require().NoError(err)
		suite.dequeue()
	}

	var first models.Memory
	suite.Require().NoError(suite.db.Where("content = ?", "one").First(&first).Error)
	suite.setExternal(first.ID, "ext-one")

	err := suite.service.DeleteAllForOwner(context.Background(), models.ScopeTeam, 5)
	suite.Require().NoError(err)

	var count int64
	suite.db.Model(&models.Memory{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)

	// only the mirrored record produces a delete job
	suite.Require().Equal(1, suite.queue.Len())
	job := suite.dequeue()
	assert.Equal(suite.T(), mirror.OpDelete, job.Op)
	assert.Equal(suite.T(), "ext-one", job.ExternalID)
}

// TestFind_ScopeMismatch tests that the dispatcher lookup rejects a record
// whose scope tag does not match the job
func (suite *MemoryServiceTestSuite) TestFind_ScopeMismatch() {
	memory, err := suite.service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)
	suite.dequeue()

	_, err = suite.service.Find(models.ScopeTeam, memory.ID)
	assert.ErrorIs(suite.T(), err, gorm.ErrRecordNotFound)
}

// failingEnqueuer rejects every job.
type failingEnqueuer struct{}

func (failingEnqueuer) Enqueue(ctx context.Context, job mirror.Job) error {
	return errors.New("redis unreachable")
}

// TestCreate_EnqueueFailureMarksFailed tests that an unreachable queue
// leaves the record failed with the queue error recorded
func (suite *MemoryServiceTestSuite) TestCreate_EnqueueFailureMarksFailed() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewMemoryService(repository.NewMemoryRepository(suite.db), failingEnqueuer{}, logger)

	memory, err := service.Create(context.Background(), CreateMemoryInput{
		Scope:   models.ScopeUser,
		OwnerID: 1,
		Content: "hello",
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.StatusFailed, memory.Status)
	assert.Contains(suite.T(), memory.ErrorMessage, "failed to queue sync task")

	var stored models.Memory
	suite.Require().NoError(suite.db.First(&stored, memory.ID).Error)
	assert.Equal(suite.T(), models.StatusFailed, stored.Status)
	assert.Contains(suite.T(), stored.ErrorMessage, "redis unreachable")
}

// TestSuite runs the test suite
func TestMemoryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryServiceTestSuite))
}
