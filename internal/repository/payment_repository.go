package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pawhaven/internal/model"
)

// PaymentRepository defines payment ledger persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindByTransactionRef(ctx context.Context, ref string) (*model.Payment, error)
	// FindByTransactionRefForUpdate takes a row-level lock; callers must be
	// inside a transaction.
	FindByTransactionRefForUpdate(ctx context.Context, ref string) (*model.Payment, error)
	// LatestPendingForUser resolves the most recent PENDING payment for a
	// user. Compatibility shim for gateways that mutate the reference
	// mid-flow.
	LatestPendingForUser(ctx context.Context, userID uuid.UUID) (*model.Payment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment record.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Update updates an existing payment record.
func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// FindByID finds a payment by ID.
func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByTransactionRef finds a payment by its correlation token.
func (r *paymentRepository) FindByTransactionRef(ctx context.Context, ref string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Where("transaction_ref = ?", ref).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByTransactionRefForUpdate finds a payment by correlation token with a
// row-level lock for update.
func (r *paymentRepository) FindByTransactionRefForUpdate(ctx context.Context, ref string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).Set("gorm:query_option", "FOR UPDATE").
		Where("transaction_ref = ?", ref).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// LatestPendingForUser finds the most recent pending payment for a user.
func (r *paymentRepository) LatestPendingForUser(ctx context.Context, userID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.PaymentStatusPending).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListForUser lists a user's payments, newest first.
func (r *paymentRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
