package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffProfile is an internal admin-console user. Its ID matches the session identity.
// Staff are never hard-deleted; banning is the deletion substitute.
type StaffProfile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Phone        string     `gorm:"type:varchar(20)" json:"phone"`
	Role         string     `gorm:"type:varchar(20);not null;default:'new';index" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	BannedUntil  *time.Time `json:"banned_until,omitempty"`
	BanReason    string     `gorm:"type:text" json:"ban_reason,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *StaffProfile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsBannedAt reports whether the staff member is banned at the given instant.
// An inactive profile with no expiry is banned permanently.
func (s *StaffProfile) IsBannedAt(now time.Time) bool {
	if s.BannedUntil != nil && now.Before(*s.BannedUntil) {
		return true
	}
	return !s.IsActive && s.BannedUntil == nil
}
