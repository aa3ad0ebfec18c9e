package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WinnerStatusPending   = "pending"
	WinnerStatusDelivered = "delivered"
)

// Winner is a prize-draw result for a scheme
type Winner struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SchemeID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"scheme_id"`
	Scheme    *Scheme      `gorm:"foreignKey:SchemeID" json:"scheme,omitempty"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *UserProfile `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DrawDate  time.Time    `gorm:"not null;index" json:"draw_date"`
	Position  int          `gorm:"not null;default:1" json:"position"`
	Prize     string       `gorm:"type:varchar(255);not null" json:"prize"`
	Status    string       `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (w *Winner) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
