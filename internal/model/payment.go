package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod identifies the gateway a payment was routed through.
// A freshly created payment has no gateway yet and carries MethodPending.
type PaymentMethod string

const (
	MethodPending PaymentMethod = "PENDING"
	MethodKhalti  PaymentMethod = "KHALTI"
	MethodEsewa   PaymentMethod = "ESEWA"
)

// PaymentStatus represents the status of an adoption payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusExpired   PaymentStatus = "EXPIRED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Terminal reports whether no further automatic transition leaves the status.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired,
		PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment records one adoption payment attempt for a pet. Rows are never
// deleted; failed and abandoned attempts stay behind as the audit trail.
type Payment struct {
	ID     uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index"`
	PetID  uuid.UUID `json:"pet_id" gorm:"type:char(36);not null;index"`

	// Amount is fixed from the pet's price at creation and never recomputed.
	Amount decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Method PaymentMethod   `json:"method" gorm:"type:varchar(10);not null;default:'PENDING'"`
	Status PaymentStatus   `json:"status" gorm:"type:varchar(10);not null;default:'PENDING';index"`

	// TransactionRef is the merchant-generated correlation token echoed back
	// by both gateways. Unique across all payments at all times.
	TransactionRef string `json:"transaction_ref" gorm:"size:20;uniqueIndex;not null"`

	// Gateway-specific fields, written once per attempt.
	ExternalRef       string `json:"external_ref,omitempty" gorm:"size:100"`        // gateway transaction code / refId
	ExternalPaymentID string `json:"external_payment_id,omitempty" gorm:"size:100"` // Khalti pidx
	GatewaySignature  string `json:"-" gorm:"type:text"`
	RedirectURL       string `json:"redirect_url,omitempty" gorm:"size:512"`
	ErrorMessage      string `json:"error_message,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
	Pet  Pet  `json:"-" gorm:"foreignKey:PetID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewTransactionRef returns a fresh 20-character correlation token. Dashes
// are stripped because the bank-redirect gateway rejects them in its
// transaction_uuid field.
func NewTransactionRef() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
}
