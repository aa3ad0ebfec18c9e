package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"akshayapatra/internal/database"
	"akshayapatra/internal/model"
	"akshayapatra/internal/rbac"
	"akshayapatra/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// env wires the real repositories and RBAC service over an in-memory database
type env struct {
	db      *gorm.DB
	tx      repository.TransactionManager
	staff   repository.StaffRepository
	users   repository.UserProfileRepository
	cards   repository.CardRepository
	schemes repository.SchemeRepository
	winners repository.WinnerRepository
	refs    repository.ReferralRepository
	audits  repository.AuditRepository
	audit   AuditService
	rbac    *rbac.Service
	procs   *stubProcedures
	events  *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	e := &env{
		db:      db,
		tx:      repository.NewTransactionManager(db),
		staff:   repository.NewStaffRepository(db),
		users:   repository.NewUserProfileRepository(db),
		cards:   repository.NewCardRepository(db),
		schemes: repository.NewSchemeRepository(db),
		winners: repository.NewWinnerRepository(db),
		refs:    repository.NewReferralRepository(db),
		audits:  repository.NewAuditRepository(db),
		events:  &recordingPublisher{},
	}
	e.audit = NewAuditService(e.audits)
	e.rbac = rbac.NewService(e.staff, rbac.NewCache(time.Minute))
	e.procs = &stubProcedures{db: db, accessKey: "letmein", completed: true}
	return e
}

func (e *env) seedStaff(t *testing.T, name string, role rbac.Role) *model.StaffProfile {
	t.Helper()
	p := &model.StaffProfile{
		Email:        name + "@akshayapatra.test",
		PasswordHash: "x",
		Name:         name,
		Role:         string(role),
		IsActive:     true,
	}
	require.NoError(t, e.staff.Create(context.Background(), p))
	return p
}

func (e *env) seedUser(t *testing.T, name string) *model.UserProfile {
	t.Helper()
	u := &model.UserProfile{
		Email:        name + "@example.com",
		PasswordHash: "x",
		FullName:     name,
		City:         "Pune",
		ReferralCode: "AK" + uuid.NewString()[:6],
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *env) auditActions(t *testing.T) []string {
	t.Helper()
	logs, _, err := e.audits.List(context.Background(), repository.AuditFilter{}, 1, 100)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

// stubProcedures stands in for the database functions. Writes go through
// repository.GetDB so they join the caller's transaction.
type stubProcedures struct {
	db        *gorm.DB
	accessKey string
	completed bool
	drawIDs   []uuid.UUID
	attachErr error
	attached  []string
}

func (p *stubProcedures) EnsureProfile(ctx context.Context, userID uuid.UUID, email, fullName, phone string) (*repository.EnsuredProfile, error) {
	code := "AK" + userID.String()[:6]
	err := repository.GetDB(ctx, p.db).Create(&model.UserProfile{
		ID:           userID,
		Email:        email,
		FullName:     fullName,
		Phone:        phone,
		ReferralCode: code,
	}).Error
	if err != nil {
		return nil, err
	}
	return &repository.EnsuredProfile{ReferralCode: code, Created: true}, nil
}

func (p *stubProcedures) AttachReferralByCode(ctx context.Context, userID uuid.UUID, code string) (*repository.AttachedReferral, error) {
	if p.attachErr != nil {
		return nil, p.attachErr
	}
	p.attached = append(p.attached, code)
	return &repository.AttachedReferral{ReferrerID: uuid.New(), Levels: 1}, nil
}

func (p *stubProcedures) ValidateAdminAccessKey(ctx context.Context, key string) (bool, error) {
	return key == p.accessKey, nil
}

func (p *stubProcedures) RunSchemeDraw(ctx context.Context, schemeID uuid.UUID, winners int) (*repository.DrawResult, error) {
	ids := p.drawIDs
	if len(ids) > winners {
		ids = ids[:winners]
	}
	return &repository.DrawResult{WinnerIDs: ids}, nil
}

func (p *stubProcedures) CheckProfileCompletion(ctx context.Context, userID uuid.UUID) (bool, error) {
	err := repository.GetDB(ctx, p.db).Model(&model.UserProfile{}).
		Where("id = ?", userID).Update("profile_completed", p.completed).Error
	return p.completed, err
}

func (p *stubProcedures) IssueVirtualCard(ctx context.Context, userID uuid.UUID) (*repository.IssuedCard, error) {
	card := &model.Card{
		UserID:     userID,
		CardNumber: "**** **** **** 4242",
		CardHolder: "virtual",
		Status:     model.CardStatusActive,
		ExpiresAt:  time.Now().AddDate(3, 0, 0),
	}
	if err := repository.GetDB(ctx, p.db).Create(card).Error; err != nil {
		return nil, err
	}
	return &repository.IssuedCard{CardID: card.ID}, nil
}

type recordingPublisher struct {
	mu           sync.Mutex
	events       []string
	disconnected []string
}

func (r *recordingPublisher) Publish(eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingPublisher) Disconnect(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, userID)
}
