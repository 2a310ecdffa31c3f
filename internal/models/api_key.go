package models

import "time"

// APIKey holds the two independently regenerable secrets of a user.
// Either key authenticates a request.
type APIKey struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	UserID       uint64    `gorm:"uniqueIndex;not null" json:"user_id"`
	PrimaryKey   string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	SecondaryKey string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
