package service

import (
	"context"
	"strings"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"

	"github.com/shopspring/decimal"
)

type CreateCardRequest struct {
	UserID     string          `json:"user_id" binding:"required,uuid"`
	CardNumber string          `json:"card_number" binding:"required,numeric,min=12,max=19"`
	CardHolder string          `json:"card_holder" binding:"required,max=255"`
	Balance    decimal.Decimal `json:"balance"`
	ExpiresAt  time.Time       `json:"expires_at" binding:"required"`
	Status     string          `json:"status" binding:"omitempty,oneof=active blocked expired"`
}

type UpdateCardRequest struct {
	CardHolder *string          `json:"card_holder" binding:"omitempty,max=255"`
	Status     *string          `json:"status" binding:"omitempty,oneof=active blocked expired"`
	Balance    *decimal.Decimal `json:"balance"`
	ExpiresAt  *time.Time       `json:"expires_at"`
}

type CardListQuery struct {
	UserID string `form:"user_id" binding:"omitempty,uuid"`
	Status string `form:"status" binding:"omitempty,oneof=active blocked expired"`
	Search string `form:"search"`
}

type CardService interface {
	List(ctx context.Context, q CardListQuery, page, limit int) ([]model.Card, int64, error)
	Get(ctx context.Context, id string) (*model.Card, error)
	Create(ctx context.Context, actorID string, req CreateCardRequest) (*model.Card, error)
	Update(ctx context.Context, actorID, id string, req UpdateCardRequest) (*model.Card, error)
	Delete(ctx context.Context, actorID, id string) error
	GetForUser(ctx context.Context, userID string) ([]model.Card, error)
	IssueForUser(ctx context.Context, userID string) (*model.Card, error)
}

type cardService struct {
	repo  repository.CardRepository
	users repository.UserProfileRepository
	procs repository.StoredProcedures
	audit AuditService
	tx    repository.TransactionManager
}

func NewCardService(
	repo repository.CardRepository,
	users repository.UserProfileRepository,
	procs repository.StoredProcedures,
	audit AuditService,
	tx repository.TransactionManager,
) CardService {
	return &cardService{repo: repo, users: users, procs: procs, audit: audit, tx: tx}
}

// MaskCardNumber keeps only the last four digits; separators are ignored
func MaskCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 4 {
		return "****"
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

func (s *cardService) List(ctx context.Context, q CardListQuery, page, limit int) ([]model.Card, int64, error) {
	filter := repository.CardFilter{Status: q.Status, Search: q.Search}
	if q.UserID != "" {
		id, err := parseID(q.UserID, "user")
		if err != nil {
			return nil, 0, err
		}
		filter.UserID = &id
	}
	cards, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "card", "list cards")
	}
	return cards, total, nil
}

func (s *cardService) Get(ctx context.Context, id string) (*model.Card, error) {
	cardID, err := parseID(id, "card")
	if err != nil {
		return nil, err
	}
	card, err := s.repo.FindByID(ctx, cardID)
	if err != nil {
		return nil, storeErr(err, "card", "get card")
	}
	return card, nil
}

func (s *cardService) Create(ctx context.Context, actorID string, req CreateCardRequest) (*model.Card, error) {
	userID, err := parseID(req.UserID, "user")
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, storeErr(err, "user", "get user")
	}
	if req.Balance.IsNegative() {
		return nil, apperror.Validation("balance cannot be negative")
	}

	status := req.Status
	if status == "" {
		status = model.CardStatusActive
	}
	card := &model.Card{
		UserID:     userID,
		CardNumber: MaskCardNumber(req.CardNumber),
		CardHolder: req.CardHolder,
		Status:     status,
		Balance:    req.Balance,
		ExpiresAt:  req.ExpiresAt,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, card); err != nil {
			return apperror.Upstream(err, "create card")
		}
		return s.audit.Record(txCtx, actorID, model.ActionCreateCard, card.ID.String(), card.CardNumber, map[string]string{
			"user_id": userID.String(),
		})
	})
	if err != nil {
		return nil, passthrough(err, "create card")
	}
	return card, nil
}

func (s *cardService) Update(ctx context.Context, actorID, id string, req UpdateCardRequest) (*model.Card, error) {
	card, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.CardHolder != nil {
		card.CardHolder = *req.CardHolder
		changes["card_holder"] = *req.CardHolder
	}
	if req.Status != nil {
		if !model.IsValidCardStatus(*req.Status) {
			return nil, apperror.Validation("invalid card status")
		}
		card.Status = *req.Status
		changes["status"] = *req.Status
	}
	if req.Balance != nil {
		if req.Balance.IsNegative() {
			return nil, apperror.Validation("balance cannot be negative")
		}
		card.Balance = *req.Balance
		changes["balance"] = req.Balance.String()
	}
	if req.ExpiresAt != nil {
		card.ExpiresAt = *req.ExpiresAt
		changes["expires_at"] = req.ExpiresAt.Format(timeLayout)
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, card); err != nil {
			return apperror.Upstream(err, "update card")
		}
		return s.audit.Record(txCtx, actorID, model.ActionUpdateCard, card.ID.String(), card.CardNumber, changes)
	})
	if err != nil {
		return nil, passthrough(err, "update card")
	}
	return card, nil
}

func (s *cardService) Delete(ctx context.Context, actorID, id string) error {
	card, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, card.ID); err != nil {
			return storeErr(err, "card", "delete card")
		}
		return s.audit.Record(txCtx, actorID, model.ActionDeleteCard, card.ID.String(), card.CardNumber, nil)
	})
	return passthrough(err, "delete card")
}

func (s *cardService) GetForUser(ctx context.Context, userID string) ([]model.Card, error) {
	id, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	cards, err := s.repo.ListByUser(ctx, id)
	if err != nil {
		return nil, storeErr(err, "card", "list user cards")
	}
	return cards, nil
}

// IssueForUser asks issue_virtual_card for a new card; the profile must be complete
func (s *cardService) IssueForUser(ctx context.Context, userID string) (*model.Card, error) {
	id, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user", "get user")
	}
	if !user.ProfileCompleted {
		return nil, apperror.Validation("complete your profile before requesting a card")
	}

	issued, err := s.procs.IssueVirtualCard(ctx, id)
	if err != nil {
		return nil, procedureErr(err, "issue virtual card")
	}
	card, err := s.repo.FindByID(ctx, issued.CardID)
	if err != nil {
		return nil, storeErr(err, "card", "get issued card")
	}
	return card, nil
}
