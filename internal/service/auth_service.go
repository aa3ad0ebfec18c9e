package service

import (
	"context"
	"errors"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/auth"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserSignUpRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	FullName     string `json:"full_name" binding:"required,max=255"`
	Phone        string `json:"phone" binding:"required,max=20"`
	ReferralCode string `json:"referral_code" binding:"omitempty,alphanum,max=16"`
}

// SessionResponse is returned by every login and signup endpoint
type SessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Identity  auth.Identity `json:"identity"`
}

// MeResponse describes the caller and, for staff, what the admin console may show them
type MeResponse struct {
	ID               uuid.UUID         `json:"id"`
	Kind             auth.Kind         `json:"kind"`
	Email            string            `json:"email"`
	Name             string            `json:"name"`
	Role             rbac.Role         `json:"role,omitempty"`
	IsSuperAdmin     bool              `json:"is_super_admin"`
	Permissions      []rbac.Permission `json:"permissions"`
	Pages            []string          `json:"pages"`
	ReferralCode     string            `json:"referral_code,omitempty"`
	ProfileCompleted bool              `json:"profile_completed"`
}

type AuthService interface {
	UserSignUp(ctx context.Context, req UserSignUpRequest) (*SessionResponse, error)
	UserLogin(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	StaffSignUp(ctx context.Context, req StaffSignUpRequest) (*SessionResponse, error)
	StaffLogin(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	Me(ctx context.Context, id auth.Identity) (*MeResponse, error)
}

type authService struct {
	staff  repository.StaffRepository
	users  repository.UserProfileRepository
	procs  repository.StoredProcedures
	tx     repository.TransactionManager
	staffs StaffService
	access AccessControl
	tokens *auth.TokenManager
	now    func() time.Time
}

func NewAuthService(
	staff repository.StaffRepository,
	users repository.UserProfileRepository,
	procs repository.StoredProcedures,
	tx repository.TransactionManager,
	staffs StaffService,
	access AccessControl,
	tokens *auth.TokenManager,
) AuthService {
	return &authService{
		staff:  staff,
		users:  users,
		procs:  procs,
		tx:     tx,
		staffs: staffs,
		access: access,
		tokens: tokens,
		now:    time.Now,
	}
}

func (s *authService) issue(id auth.Identity) (*SessionResponse, error) {
	token, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &SessionResponse{Token: token, ExpiresAt: exp, Identity: id}, nil
}

// UserSignUp bootstraps a customer profile through ensure_profile and, when a
// referral code is given, attaches the referral in the same transaction
func (s *authService) UserSignUp(ctx context.Context, req UserSignUpRequest) (*SessionResponse, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Upstream(err, "check user email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	userID := uuid.New()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.procs.EnsureProfile(txCtx, userID, email, req.FullName, req.Phone); err != nil {
			return procedureErr(err, "ensure profile")
		}
		if err := s.users.SetPasswordHash(txCtx, userID, string(hash)); err != nil {
			return storeErr(err, "user", "store password")
		}
		if req.ReferralCode != "" {
			if _, err := s.procs.AttachReferralByCode(txCtx, userID, req.ReferralCode); err != nil {
				return procedureErr(err, "attach referral")
			}
		}
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "user signup")
	}

	return s.issue(auth.Identity{ID: userID, Kind: auth.KindUser})
}

func (s *authService) UserLogin(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, apperror.Upstream(err, "find user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if user.IsBanned {
		return nil, apperror.Forbidden("account is banned")
	}
	return s.issue(auth.Identity{ID: user.ID, Kind: auth.KindUser})
}

func (s *authService) StaffSignUp(ctx context.Context, req StaffSignUpRequest) (*SessionResponse, error) {
	created, err := s.staffs.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(auth.Identity{ID: created.ID, Kind: auth.KindStaff, Role: created.Role})
}

// StaffLogin embeds the role current at login; the super admin claim is only
// set for superadmins and is re-checked against the live role on every use
func (s *authService) StaffLogin(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	staff, err := s.staff.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, apperror.Upstream(err, "find staff")
	}
	if bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if staff.IsBannedAt(s.now()) {
		return nil, apperror.Forbidden("account is banned")
	}

	role, err := s.access.GetUserRole(ctx, staff.ID.String())
	if err != nil {
		return nil, apperror.Upstream(err, "resolve staff role")
	}
	return s.issue(auth.Identity{
		ID:           staff.ID,
		Kind:         auth.KindStaff,
		Role:         string(role),
		IsSuperAdmin: role == rbac.RoleSuperAdmin,
	})
}

func (s *authService) Me(ctx context.Context, id auth.Identity) (*MeResponse, error) {
	if !id.IsStaff() {
		user, err := s.users.FindByID(ctx, id.ID)
		if err != nil {
			return nil, storeErr(err, "user", "get user")
		}
		return &MeResponse{
			ID:               user.ID,
			Kind:             auth.KindUser,
			Email:            user.Email,
			Name:             user.FullName,
			Permissions:      []rbac.Permission{},
			Pages:            []string{},
			ReferralCode:     user.ReferralCode,
			ProfileCompleted: user.ProfileCompleted,
		}, nil
	}

	staff, err := s.staff.FindByID(ctx, id.ID)
	if err != nil {
		return nil, storeErr(err, "staff", "get staff")
	}
	key := id.ID.String()
	role, err := s.access.GetUserRole(ctx, key)
	if err != nil {
		return nil, apperror.Upstream(err, "resolve staff role")
	}
	perms, err := s.access.GetUserPermissions(ctx, key)
	if err != nil {
		return nil, apperror.Upstream(err, "resolve staff permissions")
	}
	pages, err := s.access.GetUserPages(ctx, key)
	if err != nil {
		return nil, apperror.Upstream(err, "resolve staff pages")
	}
	return &MeResponse{
		ID:               staff.ID,
		Kind:             auth.KindStaff,
		Email:            staff.Email,
		Name:             staff.Name,
		Role:             role,
		IsSuperAdmin:     id.IsSuperAdmin && role == rbac.RoleSuperAdmin,
		Permissions:      perms,
		Pages:            pages,
		ProfileCompleted: true,
	}, nil
}

// ProfileGuard reports whether a session still has an active profile:
// staff must not be banned, customers must exist and not be banned
type ProfileGuard struct {
	staff repository.StaffRepository
	users repository.UserProfileRepository
	now   func() time.Time
}

func NewProfileGuard(staff repository.StaffRepository, users repository.UserProfileRepository) *ProfileGuard {
	return &ProfileGuard{staff: staff, users: users, now: time.Now}
}

func (g *ProfileGuard) HasActiveProfile(ctx context.Context, id auth.Identity) (bool, error) {
	if id.IsStaff() {
		staff, err := g.staff.FindByID(ctx, id.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return !staff.IsBannedAt(g.now()), nil
	}

	user, err := g.users.FindByID(ctx, id.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !user.IsBanned, nil
}
