package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs a function inside a single database transaction, handing
// it transaction-scoped repositories. The payment/pet pair must be mutated
// together or not at all, so the reconciliation flow does all of its
// status writes through this.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, payments PaymentRepository, pets PetRepository) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor backed by gorm transactions.
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// WithinTransaction begins a transaction, runs fn with repositories bound to
// it, and commits or rolls back based on fn's error.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, payments PaymentRepository, pets PetRepository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewPaymentRepository(tx), NewPetRepository(tx))
	})
}
