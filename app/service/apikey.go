package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/depin-orcha/orcha/app/dto"
	"github.com/depin-orcha/orcha/app/entity"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAPIKeyNotFound  = errors.New("api key not found")
	ErrInvalidAPIKey   = errors.New("invalid api key")
	ErrExpiredAPIKey   = errors.New("api key has expired")
	ErrInactiveAPIKey  = errors.New("api key is inactive")
	ErrAPIKeyNoUpdates = errors.New("no fields to update")
)

// KeyPrefix is prepended to every generated API key. Consumers identify
// orcha credentials by this prefix.
const KeyPrefix = "dpn_"

type APIKeyRepository interface {
	Create(ctx context.Context, key *entity.APIKey) error
	FindByID(ctx context.Context, id int64) (*entity.APIKey, error)
	FindAll(ctx context.Context) ([]*entity.APIKey, error)
	FindActive(ctx context.Context) ([]*entity.APIKey, error)
	Update(ctx context.Context, key *entity.APIKey) error
	TouchLastUsed(ctx context.Context, id int64, usedAt time.Time) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type CreateAPIKeyParams struct {
	Name               string
	Description        *string
	ExpiresInDays      *int64
	RateLimitPerMinute *int
	Permissions        []string
}

type UpdateAPIKeyParams struct {
	Name               *string
	Description        *string
	IsActive           *bool
	RateLimitPerMinute *int
	Permissions        *[]string
}

func (p UpdateAPIKeyParams) empty() bool {
	return p.Name == nil && p.Description == nil && p.IsActive == nil &&
		p.RateLimitPerMinute == nil && p.Permissions == nil
}

type APIKeyService interface {
	// Create stores a new key and returns the raw secret exactly once.
	Create(ctx context.Context, params CreateAPIKeyParams) (string, *dto.APIKeyInfo, error)
	List(ctx context.Context) ([]*dto.APIKeyInfo, error)
	Get(ctx context.Context, id int64) (*dto.APIKeyInfo, error)
	Update(ctx context.Context, id int64, params UpdateAPIKeyParams) (*dto.APIKeyInfo, error)
	Deactivate(ctx context.Context, id int64) (*dto.APIKeyInfo, error)
	Delete(ctx context.Context, id int64) error
	// Validate resolves a raw key presented by a caller to its stored info.
	Validate(ctx context.Context, rawKey string) (*dto.APIKeyInfo, error)
}

type apiKeyService struct {
	repo             APIKeyRepository
	defaultRateLimit int
}

func NewAPIKeyService(repo APIKeyRepository, defaultRateLimit int) APIKeyService {
	return &apiKeyService{repo: repo, defaultRateLimit: defaultRateLimit}
}

func (s *apiKeyService) Create(ctx context.Context, params CreateAPIKeyParams) (string, *dto.APIKeyInfo, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return "", nil, errors.New("name is required")
	}

	rawKey, keyHash, err := generateAPIKey()
	if err != nil {
		return "", nil, err
	}

	rateLimit := s.defaultRateLimit
	if params.RateLimitPerMinute != nil {
		rateLimit = *params.RateLimitPerMinute
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if params.ExpiresInDays != nil {
		expiry := now.AddDate(0, 0, int(*params.ExpiresInDays))
		expiresAt = &expiry
	}

	permissions := params.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	key := &entity.APIKey{
		KeyHash:            keyHash,
		Name:               name,
		Description:        params.Description,
		CreatedAt:          now,
		ExpiresAt:          expiresAt,
		IsActive:           true,
		RateLimitPerMinute: rateLimit,
		Permissions:        permissions,
	}

	if err = s.repo.Create(ctx, key); err != nil {
		return "", nil, err
	}

	return rawKey, dto.NewAPIKeyInfo(key), nil
}

func (s *apiKeyService) List(ctx context.Context) ([]*dto.APIKeyInfo, error) {
	keys, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*dto.APIKeyInfo, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, dto.NewAPIKeyInfo(key))
	}
	return infos, nil
}

func (s *apiKeyService) Get(ctx context.Context, id int64) (*dto.APIKeyInfo, error) {
	key, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrAPIKeyNotFound
	}
	return dto.NewAPIKeyInfo(key), nil
}

func (s *apiKeyService) Update(ctx context.Context, id int64, params UpdateAPIKeyParams) (*dto.APIKeyInfo, error) {
	if params.empty() {
		return nil, ErrAPIKeyNoUpdates
	}

	key, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrAPIKeyNotFound
	}

	if params.Name != nil {
		key.Name = *params.Name
	}
	if params.Description != nil {
		key.Description = params.Description
	}
	if params.IsActive != nil {
		key.IsActive = *params.IsActive
	}
	if params.RateLimitPerMinute != nil {
		key.RateLimitPerMinute = *params.RateLimitPerMinute
	}
	if params.Permissions != nil {
		key.Permissions = *params.Permissions
	}

	if err = s.repo.Update(ctx, key); err != nil {
		return nil, err
	}

	return dto.NewAPIKeyInfo(key), nil
}

func (s *apiKeyService) Deactivate(ctx context.Context, id int64) (*dto.APIKeyInfo, error) {
	key, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrAPIKeyNotFound
	}
	if !key.IsActive {
		return nil, ErrInactiveAPIKey
	}

	key.IsActive = false
	if err = s.repo.Update(ctx, key); err != nil {
		return nil, err
	}

	return dto.NewAPIKeyInfo(key), nil
}

func (s *apiKeyService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (s *apiKeyService) Validate(ctx context.Context, rawKey string) (*dto.APIKeyInfo, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, ErrInvalidAPIKey
	}

	keys, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	// Hashes are salted, so the presented key has to be verified against
	// every stored hash.
	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) != nil {
			continue
		}

		if !key.IsActive {
			return nil, ErrInactiveAPIKey
		}
		if key.Expired(time.Now().UTC()) {
			return nil, ErrExpiredAPIKey
		}

		// Best effort; a failed touch must not reject the request.
		_ = s.repo.TouchLastUsed(ctx, key.ID, time.Now().UTC())

		return dto.NewAPIKeyInfo(key), nil
	}

	return nil, ErrInvalidAPIKey
}

func generateAPIKey() (string, string, error) {
	rawKey := KeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	return rawKey, string(hash), nil
}
