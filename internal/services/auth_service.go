package services

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/models"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/utils"
)

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidAPIKey        = errors.New("invalid API key")
	ErrAPIKeysNotFound      = errors.New("no API keys found for this user")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToCreateKeys   = errors.New("failed to create API keys")
)

// AuthService handles signup, login and API key management. Every user
// carries a primary and a secondary key; either authenticates, and each
// can be regenerated without invalidating the other.
type AuthService struct {
	userRepo repository.UserRepository
	keyRepo  repository.APIKeyRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, keyRepo repository.APIKeyRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		keyRepo:  keyRepo,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates a new user along with their API key pair.
func (s *AuthService) Signup(input SignupInput) (*models.User, *models.APIKey, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, nil, fmt.Errorf("username is required")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hashedPassword),
	}

	keys, err := newAPIKeyPair()
	if err != nil {
		return nil, nil, ErrFailedToCreateKeys
	}

	if err := s.userRepo.CreateWithAPIKeys(user, keys); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateAPIKeys):
			return nil, nil, ErrFailedToCreateKeys
		default:
			return nil, nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	return user, keys, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the user with their key pair.
func (s *AuthService) Login(input LoginInput) (*models.User, *models.APIKey, error) {
	user, err := s.userRepo.FindByUsername(input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	keys, err := s.keyRepo.FindByUserID(user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAPIKeysNotFound
		}
		return nil, nil, fmt.Errorf("failed to find API keys: %w", err)
	}

	return user, keys, nil
}

// Authenticate resolves an API key from the request header to its user.
// Either the primary or the secondary key matches.
func (s *AuthService) Authenticate(key string) (*models.User, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}

	keys, err := s.keyRepo.FindByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	return &keys.User, nil
}

// GetKeys returns the key pair of a user.
func (s *AuthService) GetKeys(userID uint64) (*models.APIKey, error) {
	keys, err := s.keyRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeysNotFound
		}
		return nil, fmt.Errorf("failed to find API keys: %w", err)
	}
	return keys, nil
}

// RegeneratePrimaryKey replaces the primary key only; the secondary key
// keeps authenticating during the rotation.
func (s *AuthService) RegeneratePrimaryKey(userID uint64) (string, error) {
	keys, err := s.GetKeys(userID)
	if err != nil {
		return "", err
	}

	newKey, err := utils.GenerateAPIKey()
	if err != nil {
		return "", ErrFailedToCreateKeys
	}

	keys.PrimaryKey = newKey
	if err := s.keyRepo.Update(keys); err != nil {
		return "", fmt.Errorf("failed to update API keys: %w", err)
	}

	return newKey, nil
}

// RegenerateSecondaryKey replaces the secondary key only.
func (s *AuthService) RegenerateSecondaryKey(userID uint64) (string, error) {
	keys, err := s.GetKeys(userID)
	if err != nil {
		return "", err
	}

	newKey, err := utils.GenerateAPIKey()
	if err != nil {
		return "", ErrFailedToCreateKeys
	}

	keys.SecondaryKey = newKey
	if err := s.keyRepo.Update(keys); err != nil {
		return "", fmt.Errorf("failed to update API keys: %w", err)
	}

	return newKey, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func newAPIKeyPair() (*models.APIKey, error) {
	primary, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	secondary, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	return &models.APIKey{
		PrimaryKey:   primary,
		SecondaryKey: secondary,
	}, nil
}
