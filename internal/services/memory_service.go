package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/mirror"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
)

var (
	ErrMemoryNotFound  = errors.New("memory not found")
	ErrContentRequired = errors.New("content is required")
	ErrInvalidScope    = errors.New("invalid memory scope")
)

// MemoryService owns the memory record lifecycle. Every owner-initiated
// write passes through the change-detection rules that decide whether a
// sync job is emitted; the Mark* mutators are the dispatcher's internal
// path and never emit jobs.
type MemoryService struct {
	memoryRepo repository.MemoryRepository
	queue      mirror.Enqueuer
	logger     *slog.Logger
}

// NewMemoryService creates a new MemoryService.
func NewMemoryService(memoryRepo repository.MemoryRepository, queue mirror.Enqueuer, logger *slog.Logger) *MemoryService {
	return &MemoryService{
		memoryRepo: memoryRepo,
		queue:      queue,
		logger:     logger,
	}
}

// CreateMemoryInput represents parameters to store a new memory record.
type CreateMemoryInput struct {
	Scope   models.MemoryScope
	OwnerID uint64
	Content string
}

// ListMemoriesInput represents filters for listing memory records.
type ListMemoriesInput struct {
	Status   *models.SyncStatus
	Search   string
	Page     int
	PageSize int
}

// Create stores a new record in pending state and always schedules a
// create-sync job for it.
func (s *MemoryService) Create(ctx context.Context, input CreateMemoryInput) (*models.Memory, error) {
	if !models.ValidScope(input.Scope) {
		return nil, ErrInvalidScope
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrContentRequired
	}

	memory := &models.Memory{
		Scope:   input.Scope,
		OwnerID: input.OwnerID,
		Content: input.Content,
		Status:  models.StatusPending,
	}

	if err := s.memoryRepo.Create(memory); err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}

	s.enqueueOrFail(ctx, memory, mirror.NewCreateJob(memory))
	return memory, nil
}

// List returns one owner's records, newest first.
func (s *MemoryService) List(scope models.MemoryScope, ownerID uint64, input ListMemoriesInput) ([]models.Memory, int64, error) {
	memories, total, err := s.memoryRepo.List(repository.MemoryFilter{
		Scope:    scope,
		OwnerID:  ownerID,
		Status:   input.Status,
		Search:   input.Search,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list memories: %w", err)
	}
	return memories, total, nil
}

// Get returns a single record belonging to the owner.
func (s *MemoryService) Get(scope models.MemoryScope, ownerID, id uint64) (*models.Memory, error) {
	memory, err := s.memoryRepo.FindOwned(scope, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to find memory: %w", err)
	}
	return memory, nil
}

// UpdateContent writes new content and schedules an update-sync job only
// when the record already has an external mirror and the content actually
// changed. A record still awaiting its first sync emits nothing: the
// pending create job reads current content when it executes.
func (s *MemoryService) UpdateContent(ctx context.Context, scope models.MemoryScope, ownerID, id uint64, content string) (*models.Memory, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}

	memory, err := s.memoryRepo.FindOwned(scope, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemoryNotFound
		}
		return nil, fmt.Errorf("failed to find memory: %w", err)
	}

	previous := memory.Content
	if err := s.memoryRepo.UpdateContent(memory.ID, content); err != nil {
		return nil, fmt.Errorf("failed to update memory: %w", err)
	}
	memory.Content = content

	if memory.ExternalID != nil && *memory.ExternalID != "" && previous != content {
		s.enqueueOrFail(ctx, memory, mirror.NewUpdateJob(memory, *memory.ExternalID))
	}

	return memory, nil
}

// Delete removes a record, capturing its external ID first so the delete
// job can still reference the mirror after the row is gone.
func (s *MemoryService) Delete(ctx context.Context, scope models.MemoryScope, ownerID, id uint64) error {
	memory, err := s.memoryRepo.FindOwned(scope, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemoryNotFound
		}
		return fmt.Errorf("failed to find memory: %w", err)
	}

	return s.deleteRecord(ctx, memory)
}

// DeleteAllForOwner removes every record of one owner through the normal
// delete path, so mirrored records still get their delete jobs. Used when
// a team or organization is removed.
func (s *MemoryService) DeleteAllForOwner(ctx context.Context, scope models.MemoryScope, ownerID uint64) error {
	memories, _, err := s.memoryRepo.List(repository.MemoryFilter{Scope: scope, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("failed to list memories for deletion: %w", err)
	}

	for i := range memories {
		if err := s.deleteRecord(ctx, &memories[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryService) deleteRecord(ctx context.Context, memory *models.Memory) error {
	var externalID string
	if memory.ExternalID != nil {
		externalID = *memory.ExternalID
	}

	if err := s.memoryRepo.Delete(memory.ID); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	if externalID != "" {
		job := mirror.NewDeleteJob(memory.Scope, memory.ID, externalID)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			// The row is already gone, so there is nothing to annotate.
			s.logger.Error("failed to enqueue delete sync job",
				"memory", memory.ID, "external_id", externalID, "error", err)
		}
	}
	return nil
}

// enqueueOrFail queues a sync job; if the queue is unreachable the record
// is marked failed immediately so the gap is visible on the next read.
func (s *MemoryService) enqueueOrFail(ctx context.Context, memory *models.Memory, job mirror.Job) {
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("failed to enqueue sync job",
			"op", string(job.Op), "memory", memory.ID, "error", err)

		message := fmt.Sprintf("failed to queue sync task: %v", err)
		if err := s.memoryRepo.SetFailed(memory.ID, message); err != nil {
			s.logger.Error("failed to mark record failed", "memory", memory.ID, "error", err)
			return
		}
		memory.Status = models.StatusFailed
		memory.ErrorMessage = message
	}
}

// The methods below are the dispatcher's internal mutation path. They
// bypass the change detector by construction: status writes go straight
// to the repository and can never enqueue another job.

// Find locates a record for the dispatcher, verifying the scope tag.
func (s *MemoryService) Find(scope models.MemoryScope, id uint64) (*models.Memory, error) {
	memory, err := s.memoryRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if memory.Scope != scope {
		return nil, gorm.ErrRecordNotFound
	}
	return memory, nil
}

// MarkProcessing marks a record as being synced.
func (s *MemoryService) MarkProcessing(id uint64) error {
	return s.memoryRepo.SetProcessing(id)
}

// MarkCompleted marks a record as synced, storing the external ID when the
// sync assigned one.
func (s *MemoryService) MarkCompleted(id uint64, externalID *string) error {
	return s.memoryRepo.SetCompleted(id, externalID)
}

// MarkFailed marks a record as failed with the last error message.
func (s *MemoryService) MarkFailed(id uint64, message string) error {
	return s.memoryRepo.SetFailed(id, message)
}
