package repository

import (
	"context"

	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WinnerFilter struct {
	SchemeID *uuid.UUID
	Status   string
}

type WinnerRepository interface {
	Create(ctx context.Context, winner *model.Winner) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Winner, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Winner, error)
	List(ctx context.Context, filter WinnerFilter, page, limit int) ([]model.Winner, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type winnerRepository struct {
	db *gorm.DB
}

func NewWinnerRepository(db *gorm.DB) WinnerRepository {
	return &winnerRepository{db: db}
}

func (r *winnerRepository) Create(ctx context.Context, winner *model.Winner) error {
	return GetDB(ctx, r.db).Omit("Scheme", "User").Create(winner).Error
}

func (r *winnerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Winner, error) {
	var winner model.Winner
	if err := GetDB(ctx, r.db).Preload("Scheme").Preload("User").First(&winner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &winner, nil
}

func (r *winnerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Winner, error) {
	var winners []model.Winner
	if len(ids) == 0 {
		return winners, nil
	}
	err := GetDB(ctx, r.db).Preload("Scheme").Preload("User").Where("id IN ?", ids).Order("position ASC").Find(&winners).Error
	return winners, err
}

// List returns winners with their scheme and user profile preloaded, newest draw first
func (r *winnerRepository) List(ctx context.Context, filter WinnerFilter, page, limit int) ([]model.Winner, int64, error) {
	var winners []model.Winner
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.SchemeID != nil {
			db = db.Where("scheme_id = ?", *filter.SchemeID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Winner{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Winner{}).Scopes(scope).
		Preload("Scheme").Preload("User").
		Order("draw_date DESC, position ASC").
		Offset(offset).Limit(limit).
		Find(&winners).Error; err != nil {
		return nil, 0, err
	}
	return winners, total, nil
}

func (r *winnerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return updateByID(GetDB(ctx, r.db).Model(&model.Winner{}), id, map[string]interface{}{
		"status": status,
	})
}

func (r *winnerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Winner{}, id)
}

func (r *winnerRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var total int64
	db := GetDB(ctx, r.db).Model(&model.Winner{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Count(&total).Error
	return total, err
}
