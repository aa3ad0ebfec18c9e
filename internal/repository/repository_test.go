package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"akshayapatra/internal/database"
	"akshayapatra/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *model.UserProfile {
	t.Helper()
	u := &model.UserProfile{
		Email:        name + "@example.com",
		PasswordHash: "x",
		FullName:     name,
		ReferralCode: "AK" + uuid.NewString()[:6],
	}
	require.NoError(t, NewUserProfileRepository(db).Create(context.Background(), u))
	return u
}

func TestStaffRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewStaffRepository(db)
	ctx := context.Background()

	asha := &model.StaffProfile{Email: "asha@example.com", PasswordHash: "h", Name: "Asha Rao", Role: "support", IsActive: true}
	ravi := &model.StaffProfile{Email: "ravi@example.com", PasswordHash: "h", Name: "Ravi Kumar", Role: "manager", IsActive: true}
	require.NoError(t, repo.Create(ctx, asha))
	require.NoError(t, repo.Create(ctx, ravi))
	assert.NotEqual(t, uuid.Nil, asha.ID)

	got, err := repo.FindByEmail(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, ravi.ID, got.ID)

	list, total, err := repo.List(ctx, StaffFilter{Role: "support"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, asha.ID, list[0].ID)

	_, total, err = repo.List(ctx, StaffFilter{Search: "KUMAR"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	require.NoError(t, repo.UpdateRole(ctx, asha.ID, "manager"))
	until := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateBan(ctx, asha.ID, false, &until, "abuse"))

	got, err = repo.FindByID(ctx, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, "manager", got.Role)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.BannedUntil)
	assert.True(t, got.BannedUntil.Equal(until))
	assert.Equal(t, "abuse", got.BanReason)

	require.NoError(t, repo.UpdateBan(ctx, asha.ID, true, nil, ""))
	got, err = repo.FindByID(ctx, asha.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.BannedUntil)

	err = repo.UpdateRole(ctx, uuid.New(), "admin")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestUserProfileRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserProfileRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "meena")
	b := seedUser(t, db, "arjun")

	require.NoError(t, repo.SetBanned(ctx, b.ID, true))
	banned := true
	list, total, err := repo.List(ctx, UserFilter{Banned: &banned}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.ID, list[0].ID)

	a.City = "Pune"
	require.NoError(t, repo.Update(ctx, a))
	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", got.City)

	users, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	assert.ErrorIs(t, repo.SetPasswordHash(ctx, uuid.New(), "h"), gorm.ErrRecordNotFound)
}

func TestCardRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCardRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "kiran")

	card := &model.Card{
		UserID:     user.ID,
		CardNumber: "**** **** **** 4242",
		CardHolder: "KIRAN",
		Status:     model.CardStatusActive,
		Balance:    decimal.RequireFromString("150.50"),
		ExpiresAt:  time.Now().AddDate(3, 0, 0),
	}
	require.NoError(t, repo.Create(ctx, card))

	got, err := repo.FindByID(ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "kiran", got.User.FullName)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("150.5")))

	got.Status = model.CardStatusBlocked
	require.NoError(t, repo.Update(ctx, got))

	n, err := repo.CountByStatus(ctx, model.CardStatusBlocked)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	mine, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, repo.Delete(ctx, card.ID))
	assert.ErrorIs(t, repo.Delete(ctx, card.ID), gorm.ErrRecordNotFound)
}

func TestSchemeRepositorySubscriptions(t *testing.T) {
	db := newTestDB(t)
	repo := NewSchemeRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "lakshmi")

	scheme := &model.Scheme{
		Name:              "Gold 12",
		InstallmentAmount: decimal.NewFromInt(1000),
		Installments:      12,
		Frequency:         model.FrequencyMonthly,
		Status:            model.SchemeStatusActive,
	}
	require.NoError(t, repo.Create(ctx, scheme))

	require.NoError(t, repo.CreateSubscription(ctx, &model.SchemeSubscription{SchemeID: scheme.ID, UserID: user.ID, Status: model.SubscriptionActive}))
	err := repo.CreateSubscription(ctx, &model.SchemeSubscription{SchemeID: scheme.ID, UserID: user.ID, Status: model.SubscriptionActive})
	assert.Error(t, err, "one subscription per user and scheme")

	n, err := repo.CountSubscriptions(ctx, scheme.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	sub, err := repo.FindSubscription(ctx, scheme.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub.UserID)

	active, total, err := repo.List(ctx, SchemeFilter{Status: model.SchemeStatusActive}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Gold 12", active[0].Name)

	_, err = repo.FindByName(ctx, "Gold 12")
	assert.NoError(t, err)
}

func TestWinnerRepositoryPreloads(t *testing.T) {
	db := newTestDB(t)
	repo := NewWinnerRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "devi")
	scheme := &model.Scheme{Name: "Silver", InstallmentAmount: decimal.NewFromInt(500), Installments: 6, Status: model.SchemeStatusActive}
	require.NoError(t, NewSchemeRepository(db).Create(ctx, scheme))

	w := &model.Winner{SchemeID: scheme.ID, UserID: user.ID, DrawDate: time.Now(), Position: 1, Prize: "Gold coin", Status: model.WinnerStatusPending}
	require.NoError(t, repo.Create(ctx, w))

	list, total, err := repo.List(ctx, WinnerFilter{SchemeID: &scheme.ID}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NotNil(t, list[0].User)
	require.NotNil(t, list[0].Scheme)
	assert.Equal(t, "devi", list[0].User.FullName)
	assert.Equal(t, "Silver", list[0].Scheme.Name)

	require.NoError(t, repo.UpdateStatus(ctx, w.ID, model.WinnerStatusDelivered))
	n, err := repo.CountByStatus(ctx, model.WinnerStatusPending)
	require.NoError(t, err)
	assert.Zero(t, n)

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{w.ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
}

func TestReferralRepositorySums(t *testing.T) {
	db := newTestDB(t)
	repo := NewReferralRepository(db)
	ctx := context.Background()
	referrer := seedUser(t, db, "gopal")
	child := seedUser(t, db, "sita")

	empty, err := repo.SumCommissions(ctx, CommissionFilter{BeneficiaryID: &referrer.ID})
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	require.NoError(t, db.Create(&model.Referral{ReferrerID: referrer.ID, ReferredID: child.ID, Level: 1}).Error)
	require.NoError(t, db.Create(&[]model.Commission{
		{BeneficiaryID: referrer.ID, SourceUserID: child.ID, Level: 1, Amount: decimal.RequireFromString("25.50"), Status: model.CommissionPending},
		{BeneficiaryID: referrer.ID, SourceUserID: child.ID, Level: 1, Amount: decimal.RequireFromString("10"), Status: model.CommissionPaid},
	}).Error)

	pending, err := repo.SumCommissions(ctx, CommissionFilter{BeneficiaryID: &referrer.ID, Status: model.CommissionPending})
	require.NoError(t, err)
	assert.True(t, pending.Equal(decimal.RequireFromString("25.5")), pending.String())

	all, err := repo.SumCommissions(ctx, CommissionFilter{BeneficiaryID: &referrer.ID})
	require.NoError(t, err)
	assert.True(t, all.Equal(decimal.RequireFromString("35.5")), all.String())

	refs, err := repo.ListByReferrer(ctx, referrer.ID, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.NotNil(t, refs[0].Referred)
	assert.Equal(t, "sita", refs[0].Referred.FullName)

	refs, err = repo.ListByReferrer(ctx, referrer.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestAuditRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	staff := &model.StaffProfile{Email: "a@example.com", PasswordHash: "h", Name: "Admin", Role: "admin", IsActive: true}
	require.NoError(t, NewStaffRepository(db).Create(ctx, staff))

	require.NoError(t, repo.Log(ctx, &model.AuditLog{StaffID: &staff.ID, Action: model.ActionBanStaff, EntityID: "x", Details: "{}"}))
	require.NoError(t, repo.Log(ctx, &model.AuditLog{Action: model.ActionFlushRBACCache, Details: "{}"}))

	logs, total, err := repo.List(ctx, AuditFilter{Action: model.ActionBanStaff}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NotNil(t, logs[0].Staff)
	assert.Equal(t, "Admin", logs[0].Staff.Name)
}

func TestRunInTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	repo := NewStaffRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, &model.StaffProfile{Email: "t@example.com", PasswordHash: "h", Name: "T", IsActive: true}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNestedRunInTxUsesSavepoint(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	repo := NewStaffRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, &model.StaffProfile{Email: "outer@example.com", PasswordHash: "h", Name: "Outer", IsActive: true}); err != nil {
			return err
		}
		inner := tm.RunInTx(txCtx, func(innerCtx context.Context) error {
			if err := repo.Create(innerCtx, &model.StaffProfile{Email: "inner@example.com", PasswordHash: "h", Name: "Inner", IsActive: true}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, inner, boom)
		return nil
	})
	require.NoError(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
