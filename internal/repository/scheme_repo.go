package repository

import (
	"context"

	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SchemeFilter struct {
	Status string
	Search string
}

type SchemeRepository interface {
	Create(ctx context.Context, scheme *model.Scheme) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Scheme, error)
	FindByName(ctx context.Context, name string) (*model.Scheme, error)
	List(ctx context.Context, filter SchemeFilter, page, limit int) ([]model.Scheme, int64, error)
	Update(ctx context.Context, scheme *model.Scheme) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)

	CreateSubscription(ctx context.Context, sub *model.SchemeSubscription) error
	FindSubscription(ctx context.Context, schemeID, userID uuid.UUID) (*model.SchemeSubscription, error)
	CountSubscriptions(ctx context.Context, schemeID uuid.UUID) (int64, error)
	ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]model.SchemeSubscription, error)
}

type schemeRepository struct {
	db *gorm.DB
}

func NewSchemeRepository(db *gorm.DB) SchemeRepository {
	return &schemeRepository{db: db}
}

func (r *schemeRepository) Create(ctx context.Context, scheme *model.Scheme) error {
	return GetDB(ctx, r.db).Create(scheme).Error
}

func (r *schemeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Scheme, error) {
	var scheme model.Scheme
	if err := GetDB(ctx, r.db).First(&scheme, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scheme, nil
}

func (r *schemeRepository) FindByName(ctx context.Context, name string) (*model.Scheme, error) {
	var scheme model.Scheme
	if err := GetDB(ctx, r.db).First(&scheme, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &scheme, nil
}

func (r *schemeRepository) List(ctx context.Context, filter SchemeFilter, page, limit int) ([]model.Scheme, int64, error) {
	var schemes []model.Scheme
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := likePattern(filter.Search)
			db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Scheme{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Scheme{}).Scopes(scope).Order("created_at DESC").Offset(offset).Limit(limit).Find(&schemes).Error; err != nil {
		return nil, 0, err
	}
	return schemes, total, nil
}

func (r *schemeRepository) Update(ctx context.Context, scheme *model.Scheme) error {
	return GetDB(ctx, r.db).Save(scheme).Error
}

func (r *schemeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Scheme{}, id)
}

func (r *schemeRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var total int64
	db := GetDB(ctx, r.db).Model(&model.Scheme{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Count(&total).Error
	return total, err
}

func (r *schemeRepository) CreateSubscription(ctx context.Context, sub *model.SchemeSubscription) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *schemeRepository) FindSubscription(ctx context.Context, schemeID, userID uuid.UUID) (*model.SchemeSubscription, error) {
	var sub model.SchemeSubscription
	if err := GetDB(ctx, r.db).First(&sub, "scheme_id = ? AND user_id = ?", schemeID, userID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *schemeRepository) CountSubscriptions(ctx context.Context, schemeID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.SchemeSubscription{}).Where("scheme_id = ?", schemeID).Count(&total).Error
	return total, err
}

func (r *schemeRepository) ListSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]model.SchemeSubscription, error) {
	var subs []model.SchemeSubscription
	err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("joined_at DESC").Find(&subs).Error
	return subs, err
}
