package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/recallhq/memory-api/internal/constants"
)

// GenerateAPIKey generates a secret of the form "mem_" + 48 random
// URL-safe bytes. Both the primary and secondary key of a user are
// produced this way.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 48)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return constants.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(bytes), nil
}

// MaskAPIKey hides all but the prefix and last four characters of a key,
// for display in key-listing responses.
func MaskAPIKey(key string) string {
	if len(key) <= len(constants.APIKeyPrefix)+4 {
		return key
	}
	return constants.APIKeyPrefix + "..." + key[len(key)-4:]
}
