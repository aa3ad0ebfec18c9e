package service

import (
	"context"
	"strings"
	"time"

	"akshayapatra/internal/apperror"
	"akshayapatra/internal/model"
	"akshayapatra/internal/repository"
	"akshayapatra/internal/websocket"

	"go.uber.org/zap"
)

// UpdateUserProfileRequest carries KYC fields. Nil fields are left unchanged.
type UpdateUserProfileRequest struct {
	FullName     *string    `json:"full_name" binding:"omitempty,min=1,max=255"`
	Phone        *string    `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Address      *string    `json:"address" binding:"omitempty,max=500"`
	City         *string    `json:"city" binding:"omitempty,max=100"`
	State        *string    `json:"state" binding:"omitempty,max=100"`
	Pincode      *string    `json:"pincode" binding:"omitempty,pincode"`
	PANNumber    *string    `json:"pan_number" binding:"omitempty,pan"`
	AadhaarLast4 *string    `json:"aadhaar_last4" binding:"omitempty,len=4,numeric"`
}

type BanUserRequest struct {
	Action string `json:"action" binding:"required,oneof=ban unban"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type UserListQuery struct {
	Search           string `form:"search"`
	Banned           *bool  `form:"banned"`
	ProfileCompleted *bool  `form:"profile_completed"`
}

type UserProfileService interface {
	List(ctx context.Context, q UserListQuery, page, limit int) ([]model.UserProfile, int64, error)
	Get(ctx context.Context, id string) (*model.UserProfile, error)
	Update(ctx context.Context, actorID, id string, req UpdateUserProfileRequest) (*model.UserProfile, error)
	GetOwn(ctx context.Context, userID string) (*model.UserProfile, error)
	UpdateOwn(ctx context.Context, userID string, req UpdateUserProfileRequest) (*model.UserProfile, error)
	SetBan(ctx context.Context, actorID, id string, req BanUserRequest) (*model.UserProfile, error)
}

type userProfileService struct {
	repo   repository.UserProfileRepository
	procs  repository.StoredProcedures
	audit  AuditService
	tx     repository.TransactionManager
	events EventPublisher
	log    *zap.Logger
}

func NewUserProfileService(
	repo repository.UserProfileRepository,
	procs repository.StoredProcedures,
	audit AuditService,
	tx repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
) UserProfileService {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &userProfileService{repo: repo, procs: procs, audit: audit, tx: tx, events: events, log: log}
}

// apply copies the set fields onto user and reports what changed
func (req UpdateUserProfileRequest) apply(user *model.UserProfile) map[string]interface{} {
	changes := map[string]interface{}{}
	set := func(field string, dst *string, src *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if v != *dst {
			*dst = v
			changes[field] = v
		}
	}
	set("full_name", &user.FullName, req.FullName)
	set("phone", &user.Phone, req.Phone)
	set("address", &user.Address, req.Address)
	set("city", &user.City, req.City)
	set("state", &user.State, req.State)
	set("pincode", &user.Pincode, req.Pincode)
	set("pan_number", &user.PANNumber, req.PANNumber)
	set("aadhaar_last4", &user.AadhaarLast4, req.AadhaarLast4)
	if req.DateOfBirth != nil {
		dob := *req.DateOfBirth
		user.DateOfBirth = &dob
		changes["date_of_birth"] = dob.Format("2006-01-02")
	}
	return changes
}

func (s *userProfileService) List(ctx context.Context, q UserListQuery, page, limit int) ([]model.UserProfile, int64, error) {
	users, total, err := s.repo.List(ctx, repository.UserFilter{
		Search:           q.Search,
		Banned:           q.Banned,
		ProfileCompleted: q.ProfileCompleted,
	}, page, limit)
	if err != nil {
		return nil, 0, storeErr(err, "user", "list users")
	}
	return users, total, nil
}

func (s *userProfileService) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	userID, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user", "get user")
	}
	return user, nil
}

func (s *userProfileService) Update(ctx context.Context, actorID, id string, req UpdateUserProfileRequest) (*model.UserProfile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := req.apply(user)
	if len(changes) == 0 {
		return user, nil
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, user); err != nil {
			return apperror.Upstream(err, "update user")
		}
		return s.audit.Record(txCtx, actorID, model.ActionUpdateUser, user.ID.String(), user.Email, changes)
	})
	if err != nil {
		return nil, passthrough(err, "update user")
	}
	return user, nil
}

func (s *userProfileService) GetOwn(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.Get(ctx, userID)
}

// UpdateOwn saves the caller's KYC fields and lets check_profile_completion
// decide whether the profile is now complete
func (s *userProfileService) UpdateOwn(ctx context.Context, userID string, req UpdateUserProfileRequest) (*model.UserProfile, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(req.apply(user)) > 0 {
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, apperror.Upstream(err, "update profile")
		}
	}

	completed, err := s.procs.CheckProfileCompletion(ctx, user.ID)
	if err != nil {
		return nil, procedureErr(err, "check profile completion")
	}
	user.ProfileCompleted = completed
	return user, nil
}

func (s *userProfileService) SetBan(ctx context.Context, actorID, id string, req BanUserRequest) (*model.UserProfile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	banned := req.Action == BanActionBan
	action := model.ActionUnbanUser
	if banned {
		action = model.ActionBanUser
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SetBanned(txCtx, user.ID, banned); err != nil {
			return storeErr(err, "user", "update user ban")
		}
		return s.audit.Record(txCtx, actorID, action, user.ID.String(), user.Email, map[string]string{
			"reason": req.Reason,
		})
	})
	if err != nil {
		return nil, passthrough(err, "update user ban")
	}
	user.IsBanned = banned

	s.events.Publish(websocket.EventUserBanned, map[string]interface{}{
		"user_id": user.ID.String(),
		"banned":  banned,
	})
	s.log.Info("user ban updated",
		zap.String("actor_id", actorID),
		zap.String("user_id", user.ID.String()),
		zap.Bool("banned", banned),
	)
	return user, nil
}
