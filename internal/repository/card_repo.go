package repository

import (
	"context"

	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardFilter struct {
	UserID *uuid.UUID
	Status string
	Search string
}

type CardRepository interface {
	Create(ctx context.Context, card *model.Card) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Card, error)
	List(ctx context.Context, filter CardFilter, page, limit int) ([]model.Card, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Card, error)
	Update(ctx context.Context, card *model.Card) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type cardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *model.Card) error {
	return GetDB(ctx, r.db).Create(card).Error
}

func (r *cardRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	var card model.Card
	if err := GetDB(ctx, r.db).Preload("User").First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) List(ctx context.Context, filter CardFilter, page, limit int) ([]model.Card, int64, error) {
	var cards []model.Card
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.UserID != nil {
			db = db.Where("user_id = ?", *filter.UserID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := likePattern(filter.Search)
			db = db.Where("LOWER(card_holder) LIKE ? OR card_number LIKE ?", like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Card{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Card{}).Scopes(scope).Preload("User").Order("issued_at DESC").Offset(offset).Limit(limit).Find(&cards).Error; err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (r *cardRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Card, error) {
	var cards []model.Card
	err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("issued_at DESC").Find(&cards).Error
	return cards, err
}

func (r *cardRepository) Update(ctx context.Context, card *model.Card) error {
	return GetDB(ctx, r.db).Omit("User").Save(card).Error
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Card{}, id)
}

// CountByStatus counts cards in status, or all cards when status is empty
func (r *cardRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var total int64
	db := GetDB(ctx, r.db).Model(&model.Card{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Count(&total).Error
	return total, err
}
