package service

import (
	"context"
	"encoding/json"

	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	StaffID    string `json:"staff_id"`
	StaffName  string `json:"staff_name"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditListQuery struct {
	StaffID string `form:"staff_id" binding:"omitempty,uuid"`
	Action  string `form:"action"`
}

type AuditService interface {
	Record(ctx context.Context, actorID, action, entityID, entityName string, details interface{}) error
	List(ctx context.Context, q AuditListQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Record stores one audit entry. actorID may be empty for system actions.
// It joins the caller's transaction when ctx carries one.
func (s *auditService) Record(ctx context.Context, actorID, action, entityID, entityName string, details interface{}) error {
	payload := "{}"
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return passthrough(err, "encode audit details")
		}
		payload = string(raw)
	}

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if id, err := uuid.Parse(actorID); err == nil {
		entry.StaffID = &id
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		return storeErr(err, "audit log", "record audit log")
	}
	return nil
}

func (s *auditService) List(ctx context.Context, q AuditListQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{Action: q.Action}
	if q.StaffID != "" {
		id, err := parseID(q.StaffID, "staff")
		if err != nil {
			return nil, 0, err
		}
		filter.StaffID = &id
	}

	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "audit log", "list audit logs")
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		staffName := "System"
		staffID := ""
		if l.Staff != nil {
			staffName = l.Staff.Name
		}
		if l.StaffID != nil {
			staffID = l.StaffID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			StaffID:    staffID,
			StaffName:  staffName,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  formatTime(l.CreatedAt),
		})
	}
	return res, total, nil
}
