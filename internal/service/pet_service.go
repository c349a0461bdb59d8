package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pawhaven/internal/cache"
	apperrors "pawhaven/internal/errors"
	"pawhaven/internal/model"
	"pawhaven/internal/repository"
)

const petCacheTTL = 5 * time.Minute

// landingPageSize is how many recently listed pets the landing view shows.
const landingPageSize = 6

// PetService handles pet catalog operations.
type PetService interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Pet, error)
	ListAvailable(ctx context.Context) ([]model.Pet, error)
	Landing(ctx context.Context) (pets []model.Pet, more bool, err error)
	Create(ctx context.Context, pet *model.Pet) error
	Update(ctx context.Context, pet *model.Pet) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type petService struct {
	repo  repository.PetRepository
	cache *cache.Client
}

// NewPetService creates a new pet service.
func NewPetService(repo repository.PetRepository, cache *cache.Client) PetService {
	return &petService{
		repo:  repo,
		cache: cache,
	}
}

// Get retrieves a pet by ID with caching.
func (s *petService) Get(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	// Try cache first
	if data, _ := s.cache.Get(ctx, cache.PetKey(id)); data != nil {
		var cached model.Pet
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	pet, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPetNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(pet); err == nil {
		_ = s.cache.Set(ctx, cache.PetKey(id), payload, petCacheTTL)
	}

	return pet, nil
}

// ListAvailable lists every pet currently available for adoption.
func (s *petService) ListAvailable(ctx context.Context) ([]model.Pet, error) {
	return s.repo.ListAvailable(ctx, 0)
}

// Landing returns the most recent available pets plus a flag telling the
// caller whether there are more to browse.
func (s *petService) Landing(ctx context.Context) ([]model.Pet, bool, error) {
	pets, err := s.repo.ListAvailable(ctx, landingPageSize)
	if err != nil {
		return nil, false, fmt.Errorf("list pets: %w", err)
	}
	total, err := s.repo.CountAvailable(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("count pets: %w", err)
	}
	return pets, total > landingPageSize, nil
}

// Create adds a pet to the catalog.
func (s *petService) Create(ctx context.Context, pet *model.Pet) error {
	if pet.Status == "" {
		pet.Status = model.PetStatusAvailable
	}
	if err := s.repo.Create(ctx, pet); err != nil {
		return fmt.Errorf("create pet: %w", err)
	}
	return nil
}

// Update saves a pet and invalidates its cache entry.
func (s *petService) Update(ctx context.Context, pet *model.Pet) error {
	if err := s.repo.Update(ctx, pet); err != nil {
		return fmt.Errorf("update pet: %w", err)
	}
	_ = s.cache.Delete(ctx, cache.PetKey(pet.ID))
	return nil
}

// Delete removes a pet from the catalog.
func (s *petService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	_ = s.cache.Delete(ctx, cache.PetKey(id))
	return nil
}
