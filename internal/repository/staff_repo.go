package repository

import (
	"context"
	"time"

	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StaffStatusActive = "active"
	StaffStatusBanned = "banned"
)

type StaffFilter struct {
	Role   string
	Status string // active | banned
	Search string
}

type StaffRepository interface {
	Create(ctx context.Context, staff *model.StaffProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StaffProfile, error)
	FindByEmail(ctx context.Context, email string) (*model.StaffProfile, error)
	List(ctx context.Context, filter StaffFilter, page, limit int) ([]model.StaffProfile, int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	UpdateBan(ctx context.Context, id uuid.UUID, isActive bool, bannedUntil *time.Time, reason string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) error
	Count(ctx context.Context) (int64, error)
}

type staffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(ctx context.Context, staff *model.StaffProfile) error {
	return GetDB(ctx, r.db).Create(staff).Error
}

func (r *staffRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StaffProfile, error) {
	var staff model.StaffProfile
	if err := GetDB(ctx, r.db).First(&staff, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) FindByEmail(ctx context.Context, email string) (*model.StaffProfile, error) {
	var staff model.StaffProfile
	if err := GetDB(ctx, r.db).First(&staff, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter, page, limit int) ([]model.StaffProfile, int64, error) {
	var staff []model.StaffProfile
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Role != "" {
			db = db.Where("role = ?", filter.Role)
		}
		switch filter.Status {
		case StaffStatusActive:
			db = db.Where("is_active = ? AND (banned_until IS NULL OR banned_until <= ?)", true, time.Now())
		case StaffStatusBanned:
			db = db.Where("is_active = ? OR banned_until > ?", false, time.Now())
		}
		if filter.Search != "" {
			like := likePattern(filter.Search)
			db = db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.StaffProfile{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.StaffProfile{}).Scopes(scope).Order("created_at DESC").Offset(offset).Limit(limit).Find(&staff).Error; err != nil {
		return nil, 0, err
	}
	return staff, total, nil
}

func (r *staffRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return updateByID(GetDB(ctx, r.db).Model(&model.StaffProfile{}), id, map[string]interface{}{
		"role": role,
	})
}

func (r *staffRepository) UpdateBan(ctx context.Context, id uuid.UUID, isActive bool, bannedUntil *time.Time, reason string) error {
	return updateByID(GetDB(ctx, r.db).Model(&model.StaffProfile{}), id, map[string]interface{}{
		"is_active":    isActive,
		"banned_until": bannedUntil,
		"ban_reason":   reason,
	})
}

func (r *staffRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) error {
	return updateByID(GetDB(ctx, r.db).Model(&model.StaffProfile{}), id, map[string]interface{}{
		"name":  name,
		"phone": phone,
	})
}

func (r *staffRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.StaffProfile{}).Count(&total).Error
	return total, err
}
