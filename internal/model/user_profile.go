package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile is an end-customer record created at signup and completed through KYC
type UserProfile struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"type:varchar(255);not null" json:"-"`
	FullName         string     `gorm:"type:varchar(255)" json:"full_name"`
	Phone            string     `gorm:"type:varchar(20);index" json:"phone"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Address          string     `gorm:"type:text" json:"address"`
	City             string     `gorm:"type:varchar(100)" json:"city"`
	State            string     `gorm:"type:varchar(100)" json:"state"`
	Pincode          string     `gorm:"type:varchar(10)" json:"pincode"`
	PANNumber        string     `gorm:"column:pan_number;type:varchar(10)" json:"pan_number"`
	AadhaarLast4     string     `gorm:"type:varchar(4)" json:"aadhaar_last4"`
	ReferralCode     string     `gorm:"type:varchar(16);uniqueIndex" json:"referral_code"`
	ReferredBy       *uuid.UUID `gorm:"type:uuid;index" json:"referred_by,omitempty"`
	IsBanned         bool       `gorm:"not null;default:false" json:"is_banned"`
	ProfileCompleted bool       `gorm:"not null;default:false" json:"profile_completed"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
