package service

import (
	"context"
	"errors"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"
	"akshayapatra/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	BanActionBan   = "ban"
	BanActionUnban = "unban"

	BanPermanent = "permanent"
)

// banDurations lists the accepted temporary ban lengths
var banDurations = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

type StaffSignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	AccessKey string `json:"access_key" binding:"required"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,staffrole"`
}

type BanRequest struct {
	Action   string `json:"action" binding:"required,oneof=ban unban"`
	Duration string `json:"duration" binding:"required_if=Action ban,omitempty,oneof=1h 24h 7d 30d permanent"`
	Reason   string `json:"reason" binding:"omitempty,max=500"`
}

type UpdateStaffProfileRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Phone string `json:"phone" binding:"omitempty,max=20"`
}

type StaffListQuery struct {
	Role   string `form:"role" binding:"omitempty,staffrole"`
	Status string `form:"status" binding:"omitempty,oneof=active banned"`
	Search string `form:"search"`
}

type StaffResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	IsBanned    bool       `json:"is_banned"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
	BanReason   string     `json:"ban_reason,omitempty"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// RoleInfo describes one role of the catalog for the admin console
type RoleInfo struct {
	Role        rbac.Role         `json:"role"`
	Rank        int               `json:"rank"`
	Permissions []rbac.Permission `json:"permissions"`
	Pages       []string          `json:"pages"`
}

type StaffService interface {
	List(ctx context.Context, q StaffListQuery, page, limit int) ([]StaffResponse, int64, error)
	Get(ctx context.Context, id string) (*StaffResponse, error)
	SignUp(ctx context.Context, req StaffSignUpRequest) (*StaffResponse, error)
	ChangeRole(ctx context.Context, actorID, targetID string, req ChangeRoleRequest) (*StaffResponse, error)
	SetBan(ctx context.Context, actorID, targetID string, req BanRequest) (*StaffResponse, error)
	UpdateOwnProfile(ctx context.Context, actorID string, req UpdateStaffProfileRequest) (*StaffResponse, error)
	Roles() []RoleInfo
}

type staffService struct {
	repo   repository.StaffRepository
	procs  repository.StoredProcedures
	access AccessControl
	audit  AuditService
	tx     repository.TransactionManager
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewStaffService(
	repo repository.StaffRepository,
	procs repository.StoredProcedures,
	access AccessControl,
	audit AuditService,
	tx repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
) StaffService {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &staffService{
		repo:   repo,
		procs:  procs,
		access: access,
		audit:  audit,
		tx:     tx,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

func (s *staffService) toResponse(p *model.StaffProfile) *StaffResponse {
	return &StaffResponse{
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		Phone:       p.Phone,
		Role:        p.Role,
		IsActive:    p.IsActive,
		IsBanned:    p.IsBannedAt(s.now()),
		BannedUntil: p.BannedUntil,
		BanReason:   p.BanReason,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func (s *staffService) List(ctx context.Context, q StaffListQuery, page, limit int) ([]StaffResponse, int64, error) {
	staff, total, err := s.repo.List(ctx, repository.StaffFilter{Role: q.Role, Status: q.Status, Search: q.Search}, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "staff", "list staff")
	}
	res := make([]StaffResponse, 0, len(staff))
	for i := range staff {
		res = append(res, *s.toResponse(&staff[i]))
	}
	return res, total, nil
}

func (s *staffService) Get(ctx context.Context, id string) (*StaffResponse, error) {
	staffID, err := parseID(id, "staff")
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		return nil, storeErr(err, "staff", "get staff")
	}
	return s.toResponse(p), nil
}

// SignUp creates a staff profile with the lowest role once the admin access key checks out
func (s *staffService) SignUp(ctx context.Context, req StaffSignUpRequest) (*StaffResponse, error) {
	ok, err := s.procs.ValidateAdminAccessKey(ctx, req.AccessKey)
	if err != nil {
		return nil, apperror.Upstream(err, "validate admin access key")
	}
	if !ok {
		return nil, apperror.Forbidden("invalid admin access key")
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Upstream(err, "check staff email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	p := &model.StaffProfile{
		Email:        email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         string(rbac.RoleNew),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, apperror.Upstream(err, "create staff")
	}
	return s.toResponse(p), nil
}

// loadTarget resolves the target of a management action and checks the actor may manage it
func (s *staffService) loadTarget(ctx context.Context, actorID, targetID string) (*model.StaffProfile, error) {
	id, err := parseID(targetID, "staff")
	if err != nil {
		return nil, err
	}
	if actor, err := uuid.Parse(actorID); err == nil && actor == id {
		return nil, apperror.ErrSelfAction
	}
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "staff", "get staff")
	}
	if !s.access.CanManageUser(ctx, actorID, targetID) {
		return nil, apperror.Forbidden("you can only manage staff below your own role")
	}
	return target, nil
}

// ChangeRole assigns a new role strictly below the actor's own. The target's
// cached permissions are dropped before returning.
func (s *staffService) ChangeRole(ctx context.Context, actorID, targetID string, req ChangeRoleRequest) (*StaffResponse, error) {
	newRole := rbac.Role(req.Role)
	if !newRole.IsValid() {
		return nil, apperror.Validation("invalid role")
	}

	target, err := s.loadTarget(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	actorRole, err := s.access.GetUserRole(ctx, actorID)
	if err != nil {
		return nil, apperror.ErrForbidden
	}
	if !rbac.Outranks(actorRole, newRole) {
		return nil, apperror.Forbidden("you cannot assign a role at or above your own")
	}

	oldRole := target.Role
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateRole(txCtx, target.ID, string(newRole)); err != nil {
			return storeErr(err, "staff", "update staff role")
		}
		return s.audit.Record(txCtx, actorID, model.ActionChangeStaffRole, target.ID.String(), target.Name, map[string]string{
			"from": oldRole,
			"to":   string(newRole),
		})
	})
	if err != nil {
		return nil, passthrough(err, "change staff role")
	}

	s.access.ClearUserCache(ctx, target.ID.String())
	s.events.Publish(websocket.EventStaffRoleChanged, map[string]string{
		"staff_id": target.ID.String(),
		"role":     string(newRole),
	})
	s.log.Info("staff role changed",
		zap.String("actor_id", actorID),
		zap.String("staff_id", target.ID.String()),
		zap.String("from", oldRole),
		zap.String("to", string(newRole)),
	)

	target.Role = string(newRole)
	return s.toResponse(target), nil
}

// SetBan bans or unbans a staff member. A permanent ban deactivates the
// profile; a temporary one sets banned_until and lapses on its own.
func (s *staffService) SetBan(ctx context.Context, actorID, targetID string, req BanRequest) (*StaffResponse, error) {
	var (
		isActive    = true
		bannedUntil *time.Time
		reason      string
		action      string
		event       string
	)

	switch req.Action {
	case BanActionBan:
		action, event, reason = model.ActionBanStaff, websocket.EventStaffBanned, req.Reason
		if req.Duration == BanPermanent {
			isActive = false
		} else {
			d, ok := banDurations[req.Duration]
			if !ok {
				return nil, apperror.Validation("invalid ban duration")
			}
			until := s.now().Add(d).UTC()
			bannedUntil = &until
		}
	case BanActionUnban:
		action, event = model.ActionUnbanStaff, websocket.EventStaffUnbanned
	default:
		return nil, apperror.Validation("action must be ban or unban")
	}

	target, err := s.loadTarget(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdateBan(txCtx, target.ID, isActive, bannedUntil, reason); err != nil {
			return storeErr(err, "staff", "update staff ban")
		}
		return s.audit.Record(txCtx, actorID, action, target.ID.String(), target.Name, map[string]interface{}{
			"duration": req.Duration,
			"reason":   req.Reason,
		})
	})
	if err != nil {
		return nil, passthrough(err, "set staff ban")
	}

	targetKey := target.ID.String()
	s.access.ClearUserCache(ctx, targetKey)
	if req.Action == BanActionBan {
		s.events.Disconnect(targetKey)
	}
	s.events.Publish(event, map[string]interface{}{
		"staff_id":     targetKey,
		"banned_until": bannedUntil,
	})
	s.log.Info("staff ban updated",
		zap.String("actor_id", actorID),
		zap.String("staff_id", targetKey),
		zap.String("action", req.Action),
		zap.String("duration", req.Duration),
	)

	target.IsActive = isActive
	target.BannedUntil = bannedUntil
	target.BanReason = reason
	return s.toResponse(target), nil
}

func (s *staffService) UpdateOwnProfile(ctx context.Context, actorID string, req UpdateStaffProfileRequest) (*StaffResponse, error) {
	id, err := parseID(actorID, "staff")
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, id, req.Name, req.Phone); err != nil {
		return nil, storeErr(err, "staff", "update staff profile")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "staff", "get staff")
	}
	return s.toResponse(p), nil
}

func (s *staffService) Roles() []RoleInfo {
	roles := rbac.AllRoles()
	res := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		res = append(res, RoleInfo{
			Role:        r,
			Rank:        rbac.Rank(r),
			Permissions: rbac.PermissionsFor(r),
			Pages:       rbac.PagesFor(r),
		})
	}
	return res
}
