// Package mirror keeps the external copy of each memory record in step
// with the local store: a Redis-backed job queue, a worker-pool dispatcher
// with a bounded retry policy, and a client for the external
// semantic-memory service.
package mirror

import (
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/memory-api/internal/models"
)

// Op is the kind of work a sync job performs against the external service.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Job is one unit of sync work for one memory record. Jobs are serialized
// to JSON on the queue; the ID is only used for log correlation.
//
// Create jobs carry the content at enqueue time but the dispatcher re-reads
// the record at execution time, so a create that runs after a content
// update reflects the latest stored content. Delete jobs carry a copy of
// the external ID because the local row no longer exists when they run.
type Job struct {
	ID         string             `json:"id"`
	Op         Op                 `json:"op"`
	Scope      models.MemoryScope `json:"scope"`
	MemoryID   uint64             `json:"memory_id"`
	ExternalID string             `json:"external_id,omitempty"`
	Content    string             `json:"content,omitempty"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
}

// NewCreateJob builds a create-sync job for a freshly stored record.
func NewCreateJob(memory *models.Memory) Job {
	return Job{
		ID:         uuid.NewString(),
		Op:         OpCreate,
		Scope:      memory.Scope,
		MemoryID:   memory.ID,
		Content:    memory.Content,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewUpdateJob builds an update-sync job for a record whose content
// changed after its first successful sync.
func NewUpdateJob(memory *models.Memory, externalID string) Job {
	return Job{
		ID:         uuid.NewString(),
		Op:         OpUpdate,
		Scope:      memory.Scope,
		MemoryID:   memory.ID,
		ExternalID: externalID,
		Content:    memory.Content,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewDeleteJob builds a delete-sync job from the identifiers captured
// before the local row was removed.
func NewDeleteJob(scope models.MemoryScope, memoryID uint64, externalID string) Job {
	return Job{
		ID:         uuid.NewString(),
		Op:         OpDelete,
		Scope:      scope,
		MemoryID:   memoryID,
		ExternalID: externalID,
		EnqueuedAt: time.Now().UTC(),
	}
}
