package constants

import "time"

// Context keys
const (
	ContextKeyUserID = "user_id"
)

// Authentication
const (
	APIKeyHeader      = "X-API-Key"
	APIKeyPrefix      = "mem_"
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Sync retry policy: a task is attempted at most MaxSyncAttempts times
// with a fixed pause between attempts.
const (
	MaxSyncAttempts = 3
	SyncRetryDelay  = 10 * time.Second
)
