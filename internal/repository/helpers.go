package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// updateByID applies fields to one row and reports gorm.ErrRecordNotFound
// when no row matched
func updateByID(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	res := db.Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// deleteByID removes one row and reports gorm.ErrRecordNotFound when no row matched
func deleteByID(db *gorm.DB, model interface{}, id uuid.UUID) error {
	res := db.Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
