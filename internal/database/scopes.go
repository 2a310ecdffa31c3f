package database

import (
	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.PageSize)
	}
}

// NewestFirst orders records by creation time, most recent first
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}
