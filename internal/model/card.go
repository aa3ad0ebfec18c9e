package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CardStatusActive  = "active"
	CardStatusBlocked = "blocked"
	CardStatusExpired = "expired"
)

// Card is a virtual card issued to an end user. Only the last four digits are stored.
type Card struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *UserProfile    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CardNumber string          `gorm:"type:varchar(19);not null" json:"card_number"`
	CardHolder string          `gorm:"type:varchar(255);not null" json:"card_holder"`
	Status     string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Balance    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	ExpiresAt  time.Time       `gorm:"not null" json:"expires_at"`
	IssuedAt   time.Time       `gorm:"autoCreateTime" json:"issued_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// IsValidCardStatus checks a status against the closed set
func IsValidCardStatus(status string) bool {
	return status == CardStatusActive || status == CardStatusBlocked || status == CardStatusExpired
}
