package dto

import (
	"time"

	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/utils"
)

// APIKeysDTO represents a user's key pair with the secrets masked
type APIKeysDTO struct {
	PrimaryKey   string    `json:"primary_key"`
	SecondaryKey string    `json:"secondary_key"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// APIKeysFullDTO carries the plain secrets; only returned at signup and
// login, never from the key-listing endpoint
type APIKeysFullDTO struct {
	PrimaryKey   string `json:"primary_key"`
	SecondaryKey string `json:"secondary_key"`
}

// ToMaskedAPIKeysDTO converts a key pair to DTO with masked secrets
func ToMaskedAPIKeysDTO(keys models.APIKey) APIKeysDTO {
	return APIKeysDTO{
		PrimaryKey:   utils.MaskAPIKey(keys.PrimaryKey),
		SecondaryKey: utils.MaskAPIKey(keys.SecondaryKey),
		CreatedAt:    keys.CreatedAt,
		UpdatedAt:    keys.UpdatedAt,
	}
}

// ToFullAPIKeysDTO converts a key pair to DTO with plain secrets
func ToFullAPIKeysDTO(keys models.APIKey) APIKeysFullDTO {
	return APIKeysFullDTO{
		PrimaryKey:   keys.PrimaryKey,
		SecondaryKey: keys.SecondaryKey,
	}
}
