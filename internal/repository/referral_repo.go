package repository

import (
	"context"

	"akshayapatra/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReferralFilter struct {
	ReferrerID *uuid.UUID
	Level      int
}

type CommissionFilter struct {
	BeneficiaryID *uuid.UUID
	Status        string
	Level         int
}

// ReferralRepository reads the referral graph and commission ledger.
// Both are written only by stored procedures.
type ReferralRepository interface {
	List(ctx context.Context, filter ReferralFilter, page, limit int) ([]model.Referral, int64, error)
	ListByReferrer(ctx context.Context, referrerID uuid.UUID, level int) ([]model.Referral, error)
	ListCommissions(ctx context.Context, filter CommissionFilter, page, limit int) ([]model.Commission, int64, error)
	SumCommissions(ctx context.Context, filter CommissionFilter) (decimal.Decimal, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func referralScope(filter ReferralFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ReferrerID != nil {
			db = db.Where("referrer_id = ?", *filter.ReferrerID)
		}
		if filter.Level > 0 {
			db = db.Where("level = ?", filter.Level)
		}
		return db
	}
}

func commissionScope(filter CommissionFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.BeneficiaryID != nil {
			db = db.Where("beneficiary_id = ?", *filter.BeneficiaryID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Level > 0 {
			db = db.Where("level = ?", filter.Level)
		}
		return db
	}
}

func (r *referralRepository) List(ctx context.Context, filter ReferralFilter, page, limit int) ([]model.Referral, int64, error) {
	var referrals []model.Referral
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Referral{}).Scopes(referralScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Referral{}).Scopes(referralScope(filter)).Preload("Referred").
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&referrals).Error; err != nil {
		return nil, 0, err
	}
	return referrals, total, nil
}

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID uuid.UUID, level int) ([]model.Referral, error) {
	var referrals []model.Referral
	err := GetDB(ctx, r.db).Scopes(referralScope(ReferralFilter{ReferrerID: &referrerID, Level: level})).
		Preload("Referred").Order("created_at DESC").Find(&referrals).Error
	return referrals, err
}

func (r *referralRepository) ListCommissions(ctx context.Context, filter CommissionFilter, page, limit int) ([]model.Commission, int64, error) {
	var commissions []model.Commission
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Commission{}).Scopes(commissionScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Commission{}).Scopes(commissionScope(filter)).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&commissions).Error; err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

func (r *referralRepository) SumCommissions(ctx context.Context, filter CommissionFilter) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := GetDB(ctx, r.db).Model(&model.Commission{}).Scopes(commissionScope(filter)).
		Select("SUM(amount)").Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
