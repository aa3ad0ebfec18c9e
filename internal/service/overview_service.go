package service

import (
	"context"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Overview holds the dashboard headline numbers
type Overview struct {
	TotalUsers        int64           `json:"total_users"`
	TotalStaff        int64           `json:"total_staff"`
	ActiveSchemes     int64           `json:"active_schemes"`
	TotalCards        int64           `json:"total_cards"`
	ActiveCards       int64           `json:"active_cards"`
	PendingWinners    int64           `json:"pending_winners"`
	PendingCommission decimal.Decimal `json:"pending_commission"`
}

type OverviewService interface {
	Get(ctx context.Context) (*Overview, error)
}

type overviewService struct {
	users     repository.UserProfileRepository
	staff     repository.StaffRepository
	schemes   repository.SchemeRepository
	cards     repository.CardRepository
	winners   repository.WinnerRepository
	referrals repository.ReferralRepository
}

func NewOverviewService(
	users repository.UserProfileRepository,
	staff repository.StaffRepository,
	schemes repository.SchemeRepository,
	cards repository.CardRepository,
	winners repository.WinnerRepository,
	referrals repository.ReferralRepository,
) OverviewService {
	return &overviewService{users: users, staff: staff, schemes: schemes, cards: cards, winners: winners, referrals: referrals}
}

func (s *overviewService) Get(ctx context.Context) (*Overview, error) {
	var o Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.TotalUsers, err = s.users.Count(gctx)
		return
	})
	g.Go(func() (err error) {
		o.TotalStaff, err = s.staff.Count(gctx)
		return
	})
	g.Go(func() (err error) {
		o.ActiveSchemes, err = s.schemes.CountByStatus(gctx, model.SchemeStatusActive)
		return
	})
	g.Go(func() (err error) {
		o.TotalCards, err = s.cards.CountByStatus(gctx, "")
		return
	})
	g.Go(func() (err error) {
		o.ActiveCards, err = s.cards.CountByStatus(gctx, model.CardStatusActive)
		return
	})
	g.Go(func() (err error) {
		o.PendingWinners, err = s.winners.CountByStatus(gctx, model.WinnerStatusPending)
		return
	})
	g.Go(func() (err error) {
		o.PendingCommission, err = s.referrals.SumCommissions(gctx, repository.CommissionFilter{Status: model.CommissionPending})
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Upstream(err, "load overview")
	}
	return &o, nil
}
