package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PetStatus represents a pet's availability for adoption.
type PetStatus string

const (
	PetStatusAvailable PetStatus = "AVAILABLE"
	PetStatusPending   PetStatus = "PENDING"
	PetStatusAdopted   PetStatus = "ADOPTED"
)

// Pet represents an adoptable pet in the catalog. Status is owned by the
// payment reconciliation flow once a payment targets the pet; everything
// else treats it as read-only.
type Pet struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string          `json:"name" gorm:"size:100;not null"`
	Breed       string          `json:"breed" gorm:"size:100;not null;index"`
	AgeYears    int             `json:"age_years" gorm:"default:0"`
	AgeMonths   int             `json:"age_months" gorm:"default:0"`
	Gender      string          `json:"gender" gorm:"size:1"` // M or F
	Description string          `json:"description" gorm:"type:text"`
	ImageURL    string          `json:"image_url" gorm:"size:512"`
	Status      PetStatus       `json:"status" gorm:"type:varchar(10);not null;default:'AVAILABLE';index"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:1000.00"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Pet) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Available reports whether a payment may be initiated against the pet.
func (p *Pet) Available() bool {
	return p.Status == PetStatusAvailable
}
