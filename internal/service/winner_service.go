package service

import (
	"context"
	"strings"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"

	"github.com/google/uuid"
)

type CreateWinnerRequest struct {
	SchemeID string    `json:"scheme_id" binding:"required,uuid"`
	UserID   string    `json:"user_id" binding:"required,uuid"`
	DrawDate time.Time `json:"draw_date" binding:"required"`
	Position int       `json:"position" binding:"required,min=1"`
	Prize    string    `json:"prize" binding:"required,max=255"`
}

type UpdateWinnerStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending delivered"`
}

type WinnerListQuery struct {
	SchemeID string `form:"scheme_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=pending delivered"`
}

// WinnerResponse is the admin view with the winner's contact details
type WinnerResponse struct {
	ID         uuid.UUID `json:"id"`
	SchemeID   uuid.UUID `json:"scheme_id"`
	SchemeName string    `json:"scheme_name"`
	UserID     uuid.UUID `json:"user_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	DrawDate   string    `json:"draw_date"`
	Position   int       `json:"position"`
	Prize      string    `json:"prize"`
	Status     string    `json:"status"`
}

// PublicWinner is what customers see: no contact details, masked name
type PublicWinner struct {
	SchemeName string `json:"scheme_name"`
	Name       string `json:"name"`
	City       string `json:"city,omitempty"`
	DrawDate   string `json:"draw_date"`
	Position   int    `json:"position"`
	Prize      string `json:"prize"`
}

type WinnerService interface {
	ListWithUserProfiles(ctx context.Context, q WinnerListQuery, page, limit int) ([]WinnerResponse, int64, error)
	ListPublic(ctx context.Context, page, limit int) ([]PublicWinner, int64, error)
	Get(ctx context.Context, id string) (*WinnerResponse, error)
	Create(ctx context.Context, actorID string, req CreateWinnerRequest) (*WinnerResponse, error)
	UpdateStatus(ctx context.Context, actorID, id string, req UpdateWinnerStatusRequest) (*WinnerResponse, error)
	Delete(ctx context.Context, actorID, id string) error
}

type winnerService struct {
	repo    repository.WinnerRepository
	schemes repository.SchemeRepository
	users   repository.UserProfileRepository
	audit   AuditService
	tx      repository.TransactionManager
}

func NewWinnerService(
	repo repository.WinnerRepository,
	schemes repository.SchemeRepository,
	users repository.UserProfileRepository,
	audit AuditService,
	tx repository.TransactionManager,
) WinnerService {
	return &winnerService{repo: repo, schemes: schemes, users: users, audit: audit, tx: tx}
}

func toWinnerResponse(w model.Winner) WinnerResponse {
	resp := WinnerResponse{
		ID:       w.ID,
		SchemeID: w.SchemeID,
		UserID:   w.UserID,
		DrawDate: formatTime(w.DrawDate),
		Position: w.Position,
		Prize:    w.Prize,
		Status:   w.Status,
	}
	if w.Scheme != nil {
		resp.SchemeName = w.Scheme.Name
	}
	if w.User != nil {
		resp.FullName = w.User.FullName
		resp.Email = w.User.Email
		resp.Phone = w.User.Phone
	}
	return resp
}

// MaskName shows the first name and the initial of the last one, "Ravi K."
func MaskName(fullName string) string {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "Anonymous"
	case 1:
		return parts[0]
	default:
		last := []rune(parts[len(parts)-1])
		return parts[0] + " " + strings.ToUpper(string(last[0])) + "."
	}
}

func (s *winnerService) ListWithUserProfiles(ctx context.Context, q WinnerListQuery, page, limit int) ([]WinnerResponse, int64, error) {
	filter := repository.WinnerFilter{Status: q.Status}
	if q.SchemeID != "" {
		id, err := parseID(q.SchemeID, "scheme")
		if err != nil {
			return nil, 0, err
		}
		filter.SchemeID = &id
	}
	winners, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "winner", "list winners")
	}
	result := make([]WinnerResponse, len(winners))
	for i, w := range winners {
		result[i] = toWinnerResponse(w)
	}
	return result, total, nil
}

func (s *winnerService) ListPublic(ctx context.Context, page, limit int) ([]PublicWinner, int64, error) {
	winners, total, err := s.repo.List(ctx, repository.WinnerFilter{}, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "winner", "list winners")
	}
	result := make([]PublicWinner, len(winners))
	for i, w := range winners {
		pw := PublicWinner{
			DrawDate: formatTime(w.DrawDate),
			Position: w.Position,
			Prize:    w.Prize,
			Name:     MaskName(""),
		}
		if w.Scheme != nil {
			pw.SchemeName = w.Scheme.Name
		}
		if w.User != nil {
			pw.Name = MaskName(w.User.FullName)
			pw.City = w.User.City
		}
		result[i] = pw
	}
	return result, total, nil
}

func (s *winnerService) find(ctx context.Context, id string) (*model.Winner, error) {
	winnerID, err := parseID(id, "winner")
	if err != nil {
		return nil, err
	}
	winner, err := s.repo.FindByID(ctx, winnerID)
	if err != nil {
		return nil, storeErr(err, "winner", "get winner")
	}
	return winner, nil
}

func (s *winnerService) Get(ctx context.Context, id string) (*WinnerResponse, error) {
	winner, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toWinnerResponse(*winner)
	return &resp, nil
}

func (s *winnerService) Create(ctx context.Context, actorID string, req CreateWinnerRequest) (*WinnerResponse, error) {
	schemeID, err := parseID(req.SchemeID, "scheme")
	if err != nil {
		return nil, err
	}
	userID, err := parseID(req.UserID, "user")
	if err != nil {
		return nil, err
	}
	scheme, err := s.schemes.FindByID(ctx, schemeID)
	if err != nil {
		return nil, storeErr(err, "scheme", "get scheme")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user", "get user")
	}

	winner := &model.Winner{
		SchemeID: schemeID,
		UserID:   userID,
		DrawDate: req.DrawDate,
		Position: req.Position,
		Prize:    req.Prize,
		Status:   model.WinnerStatusPending,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, winner); err != nil {
			return apperror.Upstream(err, "create winner")
		}
		return s.audit.Record(txCtx, actorID, model.ActionCreateWinner, winner.ID.String(), user.FullName, map[string]string{
			"scheme": scheme.Name,
			"prize":  winner.Prize,
		})
	})
	if err != nil {
		return nil, passthrough(err, "create winner")
	}

	winner.Scheme = scheme
	winner.User = user
	resp := toWinnerResponse(*winner)
	return &resp, nil
}

func (s *winnerService) UpdateStatus(ctx context.Context, actorID, id string, req UpdateWinnerStatusRequest) (*WinnerResponse, error) {
	winner, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if winner.Status == req.Status {
		resp := toWinnerResponse(*winner)
		return &resp, nil
	}

	previous := winner.Status
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateStatus(txCtx, winner.ID, req.Status); err != nil {
			return storeErr(err, "winner", "update winner status")
		}
		return s.audit.Record(txCtx, actorID, model.ActionUpdateWinner, winner.ID.String(), winner.Prize, map[string]string{
			"from": previous,
			"to":   req.Status,
		})
	})
	if err != nil {
		return nil, passthrough(err, "update winner status")
	}

	winner.Status = req.Status
	resp := toWinnerResponse(*winner)
	return &resp, nil
}

func (s *winnerService) Delete(ctx context.Context, actorID, id string) error {
	winner, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, winner.ID); err != nil {
			return storeErr(err, "winner", "delete winner")
		}
		return s.audit.Record(txCtx, actorID, model.ActionDeleteWinner, winner.ID.String(), winner.Prize, nil)
	})
	return passthrough(err, "delete winner")
}
