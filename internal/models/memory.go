package models

import (
	"fmt"
	"time"
)

// MemoryScope identifies the tenant level that owns a memory record.
type MemoryScope string

const (
	ScopeUser         MemoryScope = "user"
	ScopeTeam         MemoryScope = "team"
	ScopeOrganization MemoryScope = "organization"
)

// ValidScope reports whether s is one of the three owner scopes.
func ValidScope(s MemoryScope) bool {
	switch s {
	case ScopeUser, ScopeTeam, ScopeOrganization:
		return true
	}
	return false
}

// SyncStatus is the state of a record's external mirror.
type SyncStatus string

const (
	StatusPending    SyncStatus = "pending"
	StatusProcessing SyncStatus = "processing"
	StatusCompleted  SyncStatus = "completed"
	StatusFailed     SyncStatus = "failed"
)

// Memory is a free-text record owned at exactly one tenant scope, mirrored
// asynchronously into the external semantic-memory service. The scope tag
// plus OwnerID replace the per-scope record hierarchies; the state machine
// is shared across all three scopes.
//
// ExternalID is assigned once a create sync succeeds and survives later
// failed update attempts. Memories are hard-deleted: a delete must remove
// the row after the external id has been captured for the delete job.
type Memory struct {
	ID           uint64      `gorm:"primarykey" json:"id"`
	Scope        MemoryScope `gorm:"type:varchar(20);not null;index:idx_memories_owner" json:"scope"`
	OwnerID      uint64      `gorm:"not null;index:idx_memories_owner" json:"owner_id"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	ExternalID   *string     `gorm:"type:varchar(255)" json:"external_id"`
	Status       SyncStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ErrorMessage string      `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OwnerKey is the identity the external service files this record under,
// in the form "{scope}_{recordId}".
func (m *Memory) OwnerKey() string {
	return fmt.Sprintf("%s_%d", m.Scope, m.ID)
}
