package repository

import (
	"context"

	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserFilter struct {
	Search           string
	Banned           *bool
	ProfileCompleted *bool
}

type UserProfileRepository interface {
	Create(ctx context.Context, user *model.UserProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.UserProfile, error)
	List(ctx context.Context, filter UserFilter, page, limit int) ([]model.UserProfile, int64, error)
	Update(ctx context.Context, user *model.UserProfile) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error
	Count(ctx context.Context) (int64, error)
}

type userProfileRepository struct {
	db *gorm.DB
}

func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepository{db: db}
}

func (r *userProfileRepository) Create(ctx context.Context, user *model.UserProfile) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userProfileRepository) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userProfileRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.UserProfile, error) {
	var users []model.UserProfile
	if len(ids) == 0 {
		return users, nil
	}
	err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userProfileRepository) List(ctx context.Context, filter UserFilter, page, limit int) ([]model.UserProfile, int64, error) {
	var users []model.UserProfile
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			like := likePattern(filter.Search)
			db = db.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(referral_code) LIKE ?", like, like, like, like)
		}
		if filter.Banned != nil {
			db = db.Where("is_banned = ?", *filter.Banned)
		}
		if filter.ProfileCompleted != nil {
			db = db.Where("profile_completed = ?", *filter.ProfileCompleted)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.UserProfile{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.UserProfile{}).Scopes(scope).Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userProfileRepository) Update(ctx context.Context, user *model.UserProfile) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userProfileRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return updateByID(GetDB(ctx, r.db).Model(&model.UserProfile{}), id, map[string]interface{}{
		"password_hash": hash,
	})
}

func (r *userProfileRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	return updateByID(GetDB(ctx, r.db).Model(&model.UserProfile{}), id, map[string]interface{}{
		"is_banned": banned,
	})
}

func (r *userProfileRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.UserProfile{}).Count(&total).Error
	return total, err
}
