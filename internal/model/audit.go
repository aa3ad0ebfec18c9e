package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionChangeStaffRole = "CHANGE_STAFF_ROLE"
	ActionBanStaff        = "BAN_STAFF"
	ActionUnbanStaff      = "UNBAN_STAFF"
	ActionBanUser         = "BAN_USER"
	ActionUnbanUser       = "UNBAN_USER"
	ActionUpdateUser      = "UPDATE_USER"
	ActionCreateCard      = "CREATE_CARD"
	ActionUpdateCard      = "UPDATE_CARD"
	ActionDeleteCard      = "DELETE_CARD"
	ActionCreateScheme    = "CREATE_SCHEME"
	ActionUpdateScheme    = "UPDATE_SCHEME"
	ActionDeleteScheme    = "DELETE_SCHEME"
	ActionRunDraw         = "RUN_DRAW"
	ActionCreateWinner    = "CREATE_WINNER"
	ActionUpdateWinner    = "UPDATE_WINNER"
	ActionDeleteWinner    = "DELETE_WINNER"
	ActionFlushRBACCache  = "FLUSH_RBAC_CACHE"
)

// AuditLog tracks Who, What, and When for staff actions in the admin console
type AuditLog struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID    *uuid.UUID    `gorm:"type:uuid;index" json:"staff_id"` // nil for system actions
	Staff      *StaffProfile `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	Action     string        `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string        `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string        `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string        `gorm:"type:text" json:"details"` // serialized JSON payload
	CreatedAt  time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
