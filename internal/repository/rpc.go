package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcedureError is a business rejection reported by a stored procedure
// (for example an unknown referral code), as opposed to a transport failure.
type ProcedureError struct {
	Procedure string
	Message   string
}

func (e *ProcedureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Procedure, e.Message)
}

// EnsuredProfile is returned by ensure_profile
type EnsuredProfile struct {
	ReferralCode string `json:"referral_code"`
	Created      bool   `json:"created"`
}

// AttachedReferral is returned by attach_user_referral_by_code
type AttachedReferral struct {
	ReferrerID uuid.UUID `json:"referrer_id"`
	Levels     int       `json:"levels"`
}

// DrawResult is returned by run_scheme_draw
type DrawResult struct {
	WinnerIDs []uuid.UUID `json:"winner_ids"`
}

// IssuedCard is returned by issue_virtual_card
type IssuedCard struct {
	CardID uuid.UUID `json:"card_id"`
}

// StoredProcedures invokes the business logic that lives in the database.
// Their bodies are managed with the schema, not by this service.
type StoredProcedures interface {
	EnsureProfile(ctx context.Context, userID uuid.UUID, email, fullName, phone string) (*EnsuredProfile, error)
	AttachReferralByCode(ctx context.Context, userID uuid.UUID, code string) (*AttachedReferral, error)
	ValidateAdminAccessKey(ctx context.Context, key string) (bool, error)
	RunSchemeDraw(ctx context.Context, schemeID uuid.UUID, winners int) (*DrawResult, error)
	CheckProfileCompletion(ctx context.Context, userID uuid.UUID) (bool, error)
	IssueVirtualCard(ctx context.Context, userID uuid.UUID) (*IssuedCard, error)
}

type storedProcedures struct {
	db *gorm.DB
}

func NewStoredProcedures(db *gorm.DB) StoredProcedures {
	return &storedProcedures{db: db}
}

// procedureResult is the jsonb {data, error} envelope returned by the
// json-valued procedures. A non-empty error is a business rejection.
type procedureResult struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (p *storedProcedures) callJSON(ctx context.Context, name string, out interface{}, args ...interface{}) error {
	var raw string
	query := "SELECT " + name + "(" + placeholders(len(args)) + ")::text"
	if err := GetDB(ctx, p.db).Raw(query, args...).Row().Scan(&raw); err != nil {
		return fmt.Errorf("rpc %s: %w", name, err)
	}

	var res procedureResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return fmt.Errorf("rpc %s: decode result: %w", name, err)
	}
	if res.Error != "" {
		return &ProcedureError{Procedure: name, Message: res.Error}
	}
	if out != nil && len(res.Data) > 0 && string(res.Data) != "null" {
		if err := json.Unmarshal(res.Data, out); err != nil {
			return fmt.Errorf("rpc %s: decode data: %w", name, err)
		}
	}
	return nil
}

func (p *storedProcedures) callBool(ctx context.Context, name string, args ...interface{}) (bool, error) {
	var ok bool
	query := "SELECT " + name + "(" + placeholders(len(args)) + ")"
	if err := GetDB(ctx, p.db).Raw(query, args...).Row().Scan(&ok); err != nil {
		return false, fmt.Errorf("rpc %s: %w", name, err)
	}
	return ok, nil
}

func (p *storedProcedures) EnsureProfile(ctx context.Context, userID uuid.UUID, email, fullName, phone string) (*EnsuredProfile, error) {
	var out EnsuredProfile
	if err := p.callJSON(ctx, "ensure_profile", &out, userID, email, fullName, phone); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *storedProcedures) AttachReferralByCode(ctx context.Context, userID uuid.UUID, code string) (*AttachedReferral, error) {
	var out AttachedReferral
	if err := p.callJSON(ctx, "attach_user_referral_by_code", &out, userID, code); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *storedProcedures) ValidateAdminAccessKey(ctx context.Context, key string) (bool, error) {
	return p.callBool(ctx, "validate_admin_access_key", key)
}

func (p *storedProcedures) RunSchemeDraw(ctx context.Context, schemeID uuid.UUID, winners int) (*DrawResult, error) {
	var out DrawResult
	if err := p.callJSON(ctx, "run_scheme_draw", &out, schemeID, winners); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *storedProcedures) CheckProfileCompletion(ctx context.Context, userID uuid.UUID) (bool, error) {
	return p.callBool(ctx, "check_profile_completion", userID)
}

func (p *storedProcedures) IssueVirtualCard(ctx context.Context, userID uuid.UUID) (*IssuedCard, error) {
	var out IssuedCard
	if err := p.callJSON(ctx, "issue_virtual_card", &out, userID); err != nil {
		return nil, err
	}
	return &out, nil
}
