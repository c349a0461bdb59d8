package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentEvent is an audit log entry for a payment status transition.
// Every transition is logged regardless of outcome.
type PaymentEvent struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	PaymentID uuid.UUID      `json:"payment_id" gorm:"type:char(36);not null;index"`
	Status    PaymentStatus  `json:"status" gorm:"type:varchar(10);not null;index"`
	Message   string         `json:"message,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Payment Payment `json:"-" gorm:"foreignKey:PaymentID"`
}

// BeforeCreate sets UUID before creating the record.
func (e *PaymentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
