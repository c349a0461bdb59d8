package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pawhaven/internal/model"
)

// PetRepository defines pet catalog persistence operations.
type PetRepository interface {
	Create(ctx context.Context, pet *model.Pet) error
	Update(ctx context.Context, pet *model.Pet) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pet, error)
	// FindByIDForUpdate takes a row-level lock; callers must be inside a
	// transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Pet, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PetStatus) error
	ListAvailable(ctx context.Context, limit int) ([]model.Pet, error)
	CountAvailable(ctx context.Context) (int64, error)
	ListAll(ctx context.Context) ([]model.Pet, error)
}

type petRepository struct {
	db *gorm.DB
}

// NewPetRepository creates a new pet repository.
func NewPetRepository(db *gorm.DB) PetRepository {
	return &petRepository{db: db}
}

// Create creates a new pet.
func (r *petRepository) Create(ctx context.Context, pet *model.Pet) error {
	return r.db.WithContext(ctx).Create(pet).Error
}

// Update updates an existing pet.
func (r *petRepository) Update(ctx context.Context, pet *model.Pet) error {
	return r.db.WithContext(ctx).Save(pet).Error
}

// Delete soft-deletes a pet.
func (r *petRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Pet{}, "id = ?", id).Error
}

// FindByID finds a pet by ID.
func (r *petRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	var pet model.Pet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

// FindByIDForUpdate finds a pet by ID with a row-level lock for update.
func (r *petRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	var pet model.Pet
	if err := r.db.WithContext(ctx).Set("gorm:query_option", "FOR UPDATE").
		Where("id = ?", id).First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

// UpdateStatus updates the availability status of a pet.
func (r *petRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PetStatus) error {
	return r.db.WithContext(ctx).Model(&model.Pet{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ListAvailable lists available pets, newest first. A limit of 0 means all.
func (r *petRepository) ListAvailable(ctx context.Context, limit int) ([]model.Pet, error) {
	var pets []model.Pet
	q := r.db.WithContext(ctx).
		Where("status = ?", model.PetStatusAvailable).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&pets).Error; err != nil {
		return nil, err
	}
	return pets, nil
}

// CountAvailable counts pets currently available for adoption.
func (r *petRepository) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Pet{}).
		Where("status = ?", model.PetStatusAvailable).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListAll lists every pet in the catalog.
func (r *petRepository) ListAll(ctx context.Context) ([]model.Pet, error) {
	var pets []model.Pet
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&pets).Error; err != nil {
		return nil, err
	}
	return pets, nil
}
