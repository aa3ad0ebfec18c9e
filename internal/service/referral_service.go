package service

import (
	"context"
	"strings"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type AttachReferralRequest struct {
	Code string `json:"code" binding:"required,max=16"`
}

type ReferralListQuery struct {
	ReferrerID string `form:"referrer_id" binding:"omitempty,uuid"`
	Level      int    `form:"level" binding:"omitempty,oneof=1 2"`
}

type CommissionListQuery struct {
	BeneficiaryID string `form:"beneficiary_id" binding:"omitempty,uuid"`
	Status        string `form:"status" binding:"omitempty,oneof=pending paid"`
	Level         int    `form:"level" binding:"omitempty,oneof=1 2"`
}

type ReferredUser struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	JoinedAt string    `json:"joined_at"`
}

// ReferralSummary is a customer's view of their referral tree and earnings
type ReferralSummary struct {
	ReferralCode      string          `json:"referral_code"`
	Level1            []ReferredUser  `json:"level1"`
	Level2            []ReferredUser  `json:"level2"`
	PendingCommission decimal.Decimal `json:"pending_commission"`
	PaidCommission    decimal.Decimal `json:"paid_commission"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
}

type ReferralService interface {
	Attach(ctx context.Context, userID string, req AttachReferralRequest) (*repository.AttachedReferral, error)
	Summary(ctx context.Context, userID string) (*ReferralSummary, error)
	ListReferrals(ctx context.Context, q ReferralListQuery, page, limit int) ([]model.Referral, int64, error)
	ListCommissions(ctx context.Context, q CommissionListQuery, page, limit int) ([]model.Commission, int64, error)
}

type referralService struct {
	repo  repository.ReferralRepository
	users repository.UserProfileRepository
	procs repository.StoredProcedures
}

func NewReferralService(
	repo repository.ReferralRepository,
	users repository.UserProfileRepository,
	procs repository.StoredProcedures,
) ReferralService {
	return &referralService{repo: repo, users: users, procs: procs}
}

func (s *referralService) Attach(ctx context.Context, userID string, req AttachReferralRequest) (*repository.AttachedReferral, error) {
	id, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user", "get user")
	}
	if user.ReferredBy != nil {
		return nil, apperror.Conflict("a referral code has already been applied")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, apperror.Validation("referral code is required")
	}
	if strings.EqualFold(code, user.ReferralCode) {
		return nil, apperror.Validation("you cannot use your own referral code")
	}

	attached, err := s.procs.AttachReferralByCode(ctx, id, code)
	if err != nil {
		return nil, procedureErr(err, "attach referral")
	}
	return attached, nil
}

func toReferredUsers(refs []model.Referral) []ReferredUser {
	out := make([]ReferredUser, 0, len(refs))
	for _, r := range refs {
		u := ReferredUser{ID: r.ReferredID, JoinedAt: formatTime(r.CreatedAt)}
		if r.Referred != nil {
			u.FullName = MaskName(r.Referred.FullName)
		}
		out = append(out, u)
	}
	return out
}

// Summary loads both referral levels and the commission totals concurrently
func (s *referralService) Summary(ctx context.Context, userID string) (*ReferralSummary, error) {
	id, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user", "get user")
	}

	var (
		level1, level2 []model.Referral
		pending, paid  decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		level1, err = s.repo.ListByReferrer(gctx, id, 1)
		return err
	})
	g.Go(func() (err error) {
		level2, err = s.repo.ListByReferrer(gctx, id, 2)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.repo.SumCommissions(gctx, repository.CommissionFilter{BeneficiaryID: &id, Status: model.CommissionPending})
		return err
	})
	g.Go(func() (err error) {
		paid, err = s.repo.SumCommissions(gctx, repository.CommissionFilter{BeneficiaryID: &id, Status: model.CommissionPaid})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Upstream(err, "load referral summary")
	}

	return &ReferralSummary{
		ReferralCode:      user.ReferralCode,
		Level1:            toReferredUsers(level1),
		Level2:            toReferredUsers(level2),
		PendingCommission: pending,
		PaidCommission:    paid,
		TotalCommission:   pending.Add(paid),
	}, nil
}

func (s *referralService) ListReferrals(ctx context.Context, q ReferralListQuery, page, limit int) ([]model.Referral, int64, error) {
	filter := repository.ReferralFilter{Level: q.Level}
	if q.ReferrerID != "" {
		id, err := parseID(q.ReferrerID, "user")
		if err != nil {
			return nil, 0, err
		}
		filter.ReferrerID = &id
	}
	refs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "referral", "list referrals")
	}
	return refs, total, nil
}

func (s *referralService) ListCommissions(ctx context.Context, q CommissionListQuery, page, limit int) ([]model.Commission, int64, error) {
	filter := repository.CommissionFilter{Status: q.Status, Level: q.Level}
	if q.BeneficiaryID != "" {
		id, err := parseID(q.BeneficiaryID, "user")
		if err != nil {
			return nil, 0, err
		}
		filter.BeneficiaryID = &id
	}
	commissions, total, err := s.repo.ListCommissions(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "commission", "list commissions")
	}
	return commissions, total, nil
}
