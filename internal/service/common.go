package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// EventPublisher pushes admin-console events to connected staff
type EventPublisher interface {
	Publish(eventType string, payload interface{})
	Disconnect(userID string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}
func (nopPublisher) Disconnect(string)           {}

// AccessControl is the part of the RBAC service the domain services rely on
type AccessControl interface {
	CanManageUser(ctx context.Context, actorID, targetID string) bool
	GetUserRole(ctx context.Context, userID string) (rbac.Role, error)
	GetUserPermissions(ctx context.Context, userID string) ([]rbac.Permission, error)
	GetUserPages(ctx context.Context, userID string) ([]string, error)
	ClearUserCache(ctx context.Context, userID string)
}

func parseID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid " + resource + " id")
	}
	return id, nil
}

// storeErr translates a repository error: missing rows become NotFound,
// anything else is an upstream failure
func storeErr(err error, resource, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource)
	}
	return apperror.Upstream(err, op)
}

// procedureErr turns a stored-procedure rejection into a validation error
func procedureErr(err error, op string) error {
	var perr *repository.ProcedureError
	if errors.As(err, &perr) {
		msg := perr.Message
		if msg == "" {
			msg = op + " was rejected"
		}
		return apperror.Validation(msg)
	}
	return apperror.Upstream(err, op)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// passthrough returns err untouched when it already carries a kind
func passthrough(err error, op string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Upstream(err, op)
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
