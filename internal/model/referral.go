package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CommissionPending = "pending"
	CommissionPaid    = "paid"
)

// Referral records that ReferrerID brought in ReferredID, directly (level 1)
// or through one intermediary (level 2). Rows are written by the attach procedure.
type Referral struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID uuid.UUID    `gorm:"type:uuid;not null;index" json:"referrer_id"`
	ReferredID uuid.UUID    `gorm:"type:uuid;not null;index" json:"referred_id"`
	Referred   *UserProfile `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	Level      int          `gorm:"not null" json:"level"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Commission is earned by BeneficiaryID from an installment paid by SourceUserID
type Commission struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BeneficiaryID uuid.UUID       `gorm:"type:uuid;not null;index" json:"beneficiary_id"`
	SourceUserID  uuid.UUID       `gorm:"type:uuid;not null" json:"source_user_id"`
	Level         int             `gorm:"not null" json:"level"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Commission) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
