package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pawhaven/internal/errors"
	"pawhaven/internal/model"
)

func newPetServiceFixture(t *testing.T) (PetService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewPetService(&memPetRepo{s: store}, nil), store
}

func TestPetService_Get(t *testing.T) {
	svc, store := newPetServiceFixture(t)
	ctx := context.Background()

	pet := &model.Pet{Name: "Bella", Breed: "Labrador", Status: model.PetStatusAvailable, Price: decimal.RequireFromString("1500.00")}
	require.NoError(t, (&memPetRepo{s: store}).Create(ctx, pet))

	found, err := svc.Get(ctx, pet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bella", found.Name)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrPetNotFound)
}

func TestPetService_Landing(t *testing.T) {
	svc, store := newPetServiceFixture(t)
	ctx := context.Background()

	t.Run("fewer pets than a page", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			pet := &model.Pet{Name: fmt.Sprintf("pet-%d", i), Breed: "Pug", Status: model.PetStatusAvailable}
			require.NoError(t, (&memPetRepo{s: store}).Create(ctx, pet))
		}

		pets, more, err := svc.Landing(ctx)
		require.NoError(t, err)
		assert.Len(t, pets, 3)
		assert.False(t, more)
	})

	t.Run("more pets than a page", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			pet := &model.Pet{Name: fmt.Sprintf("extra-%d", i), Breed: "Pug", Status: model.PetStatusAvailable}
			require.NoError(t, (&memPetRepo{s: store}).Create(ctx, pet))
		}

		pets, more, err := svc.Landing(ctx)
		require.NoError(t, err)
		assert.Len(t, pets, 6)
		assert.True(t, more)
	})
}

func TestPetService_ListAvailableExcludesAdopted(t *testing.T) {
	svc, store := newPetServiceFixture(t)
	ctx := context.Background()

	available := &model.Pet{Name: "Bella", Breed: "Labrador", Status: model.PetStatusAvailable}
	adopted := &model.Pet{Name: "Max", Breed: "Pug", Status: model.PetStatusAdopted}
	require.NoError(t, (&memPetRepo{s: store}).Create(ctx, available))
	require.NoError(t, (&memPetRepo{s: store}).Create(ctx, adopted))

	pets, err := svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, pets, 1)
	assert.Equal(t, "Bella", pets[0].Name)
}

func TestPetService_CreateDefaultsToAvailable(t *testing.T) {
	svc, _ := newPetServiceFixture(t)

	pet := &model.Pet{Name: "Bella", Breed: "Labrador"}
	require.NoError(t, svc.Create(context.Background(), pet))
	assert.Equal(t, model.PetStatusAvailable, pet.Status)
	assert.NotEqual(t, uuid.Nil, pet.ID)
}
