package service

import (
	"context"
	"errors"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"
	"akshayapatra/internal/websocket"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateSchemeRequest struct {
	Name              string          `json:"name" binding:"required,max=255"`
	Description       string          `json:"description"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" binding:"required"`
	Installments      int             `json:"installments" binding:"required,min=1,max=120"`
	Frequency         string          `json:"frequency" binding:"omitempty,oneof=weekly monthly"`
	PrizeDescription  string          `json:"prize_description"`
	DrawDate          *time.Time      `json:"draw_date"`
	Status            string          `json:"status" binding:"omitempty,oneof=draft active closed"`
}

type UpdateSchemeRequest struct {
	Name              *string          `json:"name" binding:"omitempty,max=255"`
	Description       *string          `json:"description"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount"`
	Installments      *int             `json:"installments" binding:"omitempty,min=1,max=120"`
	Frequency         *string          `json:"frequency" binding:"omitempty,oneof=weekly monthly"`
	PrizeDescription  *string          `json:"prize_description"`
	DrawDate          *time.Time       `json:"draw_date"`
	Status            *string          `json:"status" binding:"omitempty,oneof=draft active closed"`
}

type SchemeListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=draft active closed"`
	Search string `form:"search"`
}

type RunDrawRequest struct {
	Winners int `json:"winners" binding:"required,min=1,max=100"`
}

type SchemeService interface {
	List(ctx context.Context, q SchemeListQuery, page, limit int) ([]model.Scheme, int64, error)
	ListActive(ctx context.Context, page, limit int) ([]model.Scheme, int64, error)
	Get(ctx context.Context, id string) (*model.Scheme, error)
	Create(ctx context.Context, actorID string, req CreateSchemeRequest) (*model.Scheme, error)
	Update(ctx context.Context, actorID, id string, req UpdateSchemeRequest) (*model.Scheme, error)
	Delete(ctx context.Context, actorID, id string) error
	Subscribe(ctx context.Context, userID, schemeID string) (*model.SchemeSubscription, error)
	RunDraw(ctx context.Context, actorID, schemeID string, req RunDrawRequest) ([]model.Winner, error)
}

type schemeService struct {
	repo    repository.SchemeRepository
	winners repository.WinnerRepository
	procs   repository.StoredProcedures
	audit   AuditService
	tx      repository.TransactionManager
	events  EventPublisher
}

func NewSchemeService(
	repo repository.SchemeRepository,
	winners repository.WinnerRepository,
	procs repository.StoredProcedures,
	audit AuditService,
	tx repository.TransactionManager,
	events EventPublisher,
) SchemeService {
	if events == nil {
		events = nopPublisher{}
	}
	return &schemeService{repo: repo, winners: winners, procs: procs, audit: audit, tx: tx, events: events}
}

func (s *schemeService) List(ctx context.Context, q SchemeListQuery, page, limit int) ([]model.Scheme, int64, error) {
	schemes, total, err := s.repo.List(ctx, repository.SchemeFilter{Status: q.Status, Search: q.Search}, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "scheme", "list schemes")
	}
	return schemes, total, nil
}

func (s *schemeService) ListActive(ctx context.Context, page, limit int) ([]model.Scheme, int64, error) {
	return s.List(ctx, SchemeListQuery{Status: model.SchemeStatusActive}, page, limit)
}

func (s *schemeService) Get(ctx context.Context, id string) (*model.Scheme, error) {
	schemeID, err := parseID(id, "scheme")
	if err != nil {
		return nil, err
	}
	scheme, err := s.repo.FindByID(ctx, schemeID)
	if err != nil {
		return nil, storeErr(err, "scheme", "get scheme")
	}
	return scheme, nil
}

func (s *schemeService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return apperror.Conflict("a scheme with this name already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Upstream(err, "check scheme name")
	}
	return nil
}

func (s *schemeService) Create(ctx context.Context, actorID string, req CreateSchemeRequest) (*model.Scheme, error) {
	if !req.InstallmentAmount.IsPositive() {
		return nil, apperror.Validation("installment amount must be positive")
	}
	if err := s.ensureNameFree(ctx, req.Name); err != nil {
		return nil, err
	}

	scheme := &model.Scheme{
		Name:              req.Name,
		Description:       req.Description,
		InstallmentAmount: req.InstallmentAmount,
		Installments:      req.Installments,
		Frequency:         req.Frequency,
		PrizeDescription:  req.PrizeDescription,
		DrawDate:          req.DrawDate,
		Status:            req.Status,
	}
	if scheme.Frequency == "" {
		scheme.Frequency = model.FrequencyMonthly
	}
	if scheme.Status == "" {
		scheme.Status = model.SchemeStatusDraft
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, scheme); err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("a scheme with this name already exists")
			}
			return apperror.Upstream(err, "create scheme")
		}
		return s.audit.Record(txCtx, actorID, model.ActionCreateScheme, scheme.ID.String(), scheme.Name, nil)
	})
	if err != nil {
		return nil, passthrough(err, "create scheme")
	}
	return scheme, nil
}

func (s *schemeService) Update(ctx context.Context, actorID, id string, req UpdateSchemeRequest) (*model.Scheme, error) {
	scheme, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != scheme.Name {
		if err := s.ensureNameFree(ctx, *req.Name); err != nil {
			return nil, err
		}
		scheme.Name = *req.Name
	}
	if req.Description != nil {
		scheme.Description = *req.Description
	}
	if req.InstallmentAmount != nil {
		if !req.InstallmentAmount.IsPositive() {
			return nil, apperror.Validation("installment amount must be positive")
		}
		scheme.InstallmentAmount = *req.InstallmentAmount
	}
	if req.Installments != nil {
		scheme.Installments = *req.Installments
	}
	if req.Frequency != nil {
		scheme.Frequency = *req.Frequency
	}
	if req.PrizeDescription != nil {
		scheme.PrizeDescription = *req.PrizeDescription
	}
	if req.DrawDate != nil {
		scheme.DrawDate = req.DrawDate
	}
	if req.Status != nil {
		scheme.Status = *req.Status
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, scheme); err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("a scheme with this name already exists")
			}
			return apperror.Upstream(err, "update scheme")
		}
		return s.audit.Record(txCtx, actorID, model.ActionUpdateScheme, scheme.ID.String(), scheme.Name, req)
	})
	if err != nil {
		return nil, passthrough(err, "update scheme")
	}
	return scheme, nil
}

// Delete removes a scheme nobody has subscribed to
func (s *schemeService) Delete(ctx context.Context, actorID, id string) error {
	scheme, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	subs, err := s.repo.CountSubscriptions(ctx, scheme.ID)
	if err != nil {
		return apperror.Upstream(err, "count subscriptions")
	}
	if subs > 0 {
		return apperror.Conflict("scheme has subscribers and cannot be deleted; close it instead")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, scheme.ID); err != nil {
			return storeErr(err, "scheme", "delete scheme")
		}
		return s.audit.Record(txCtx, actorID, model.ActionDeleteScheme, scheme.ID.String(), scheme.Name, nil)
	})
	return passthrough(err, "delete scheme")
}

func (s *schemeService) Subscribe(ctx context.Context, userID, schemeID string) (*model.SchemeSubscription, error) {
	uid, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	scheme, err := s.Get(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	if scheme.Status != model.SchemeStatusActive {
		return nil, apperror.Validation("scheme is not open for subscription")
	}

	if _, err := s.repo.FindSubscription(ctx, scheme.ID, uid); err == nil {
		return nil, apperror.Conflict("already subscribed to this scheme")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Upstream(err, "check subscription")
	}

	sub := &model.SchemeSubscription{SchemeID: scheme.ID, UserID: uid, Status: model.SubscriptionActive}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("already subscribed to this scheme")
		}
		return nil, apperror.Upstream(err, "create subscription")
	}
	return sub, nil
}

// RunDraw delegates winner selection to run_scheme_draw and returns the new winners
func (s *schemeService) RunDraw(ctx context.Context, actorID, schemeID string, req RunDrawRequest) ([]model.Winner, error) {
	scheme, err := s.Get(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	if scheme.Status == model.SchemeStatusDraft {
		return nil, apperror.Validation("cannot draw a scheme that is still a draft")
	}

	var winners []model.Winner
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		result, err := s.procs.RunSchemeDraw(txCtx, scheme.ID, req.Winners)
		if err != nil {
			return procedureErr(err, "run scheme draw")
		}
		winners, err = s.winners.FindByIDs(txCtx, result.WinnerIDs)
		if err != nil {
			return apperror.Upstream(err, "load draw winners")
		}
		return s.audit.Record(txCtx, actorID, model.ActionRunDraw, scheme.ID.String(), scheme.Name, map[string]int{
			"requested": req.Winners,
			"drawn":     len(winners),
		})
	})
	if err != nil {
		return nil, passthrough(err, "run scheme draw")
	}

	s.events.Publish(websocket.EventSchemeDrawCompleted, map[string]interface{}{
		"scheme_id": scheme.ID.String(),
		"winners":   len(winners),
	})
	return winners, nil
}
