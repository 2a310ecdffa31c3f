package models

import (
	"time"
)

type Team struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_teams_name_org" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	OrganizationID uint64    `gorm:"not null;uniqueIndex:idx_teams_name_org;index" json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization Organization     `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Memberships  []TeamMembership `gorm:"foreignKey:TeamID" json:"memberships,omitempty"`
}
