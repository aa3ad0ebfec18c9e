package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SchemeStatusDraft  = "draft"
	SchemeStatusActive = "active"
	SchemeStatusClosed = "closed"

	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"

	SubscriptionActive    = "active"
	SubscriptionCompleted = "completed"
	SubscriptionCancelled = "cancelled"
)

// Scheme is a subscription savings product with installments and a prize draw
type Scheme struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	InstallmentAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"installment_amount"`
	Installments      int             `gorm:"not null" json:"installments"`
	Frequency         string          `gorm:"type:varchar(20);not null;default:'monthly'" json:"frequency"`
	PrizeDescription  string          `gorm:"type:text" json:"prize_description"`
	DrawDate          *time.Time      `json:"draw_date,omitempty"`
	Status            string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Scheme) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SchemeSubscription links a user to a scheme they pay installments into
type SchemeSubscription struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SchemeID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_scheme_user" json:"scheme_id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_scheme_user" json:"user_id"`
	PaidInstallments int       `gorm:"not null;default:0" json:"paid_installments"`
	Status           string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	JoinedAt         time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (s *SchemeSubscription) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
