package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/auth/password"
	authrepository "github.com/locafrota/fleetsla/internal/auth/repository"
	authservice "github.com/locafrota/fleetsla/internal/auth/service"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/identity/repository"
	"github.com/locafrota/fleetsla/internal/providers/email"
	"github.com/locafrota/fleetsla/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mailRecorder struct {
	sent []email.Message
}

func (m *mailRecorder) Send(_ context.Context, msg email.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type auditSink struct {
	entries []auditdomain.Entry
}

func (a *auditSink) Record(_ context.Context, entry auditdomain.Entry) {
	a.entries = append(a.entries, entry)
}

type testEnv struct {
	svc     domain.Service
	authSvc authdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	mail    *mailRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.User{}, &authdomain.Session{}, &authdomain.PasswordReset{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	env := &testEnv{
		db:    dbConn,
		node:  node,
		clock: clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		mail:  &mailRecorder{},
	}
	cfg := config.Config{
		BaseURL:        "http://sla.local",
		SessionTTL:     12 * time.Hour,
		PasswordMaxAge: 90 * 24 * time.Hour,
		ResetTokenTTL:  30 * time.Minute,
	}

	users := repository.Provide()
	sessions, resets := authrepository.New()
	env.authSvc = authservice.New(authservice.Params{
		Cfg:      cfg,
		DB:       dbConn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    env.clock,
		Users:    users,
		Sessions: sessions,
		Resets:   resets,
		Mail:     env.mail,
		Audit:    &auditSink{},
		Obs:      nil,
	})
	env.svc = New(Params{
		Cfg:   cfg,
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: env.clock,
		Repo:  users,
		Auth:  env.authSvc,
		Mail:  env.mail,
		Audit: &auditSink{},
	})
	return env
}

func (e *testEnv) seedUser(t *testing.T, mutate func(*domain.User)) *domain.User {
	t.Helper()

	hash, err := password.Hash("Seeded#Pass42")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:                e.node.Generate(),
		Username:          "helena",
		Email:             "helena@example.com",
		FullName:          "Helena Souza",
		PasswordHash:      hash,
		Role:              domain.RoleUser,
		Status:            domain.StatusPending,
		PasswordChangedAt: e.clock.Now(),
		CreatedAt:         e.clock.Now(),
		UpdatedAt:         e.clock.Now(),
	}
	if mutate != nil {
		mutate(user)
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func validSignup() domain.SignupRequest {
	return domain.SignupRequest{
		Username:        "marina",
		FullName:        "Marina Alves",
		Matricula:       "F-2210",
		Email:           "marina@example.com",
		Password:        "Strong#Pass10",
		PasswordConfirm: "Strong#Pass10",
	}
}

func TestSignupCreatesPendingUser(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %q", user.Status)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected user role, got %q", user.Role)
	}
	if !user.HasPassword() {
		t.Fatal("expected stored credential")
	}

	// Pending accounts can not log in yet.
	_, err = env.authSvc.Login(context.Background(), authdomain.LoginRequest{Username: "marina", Password: "Strong#Pass10"})
	if !errors.Is(err, authdomain.ErrAccountPending) {
		t.Fatalf("expected ErrAccountPending, got %v", err)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, func(u *domain.User) { u.Username = "marina"; u.Email = "other@example.com" })

	_, err := env.svc.Signup(context.Background(), validSignup())
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, func(u *domain.User) { u.Email = "marina@example.com" })

	_, err := env.svc.Signup(context.Background(), validSignup())
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignupWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	req := validSignup()
	req.Password = "abc"
	req.PasswordConfirm = "abc"

	_, err := env.svc.Signup(context.Background(), req)
	var policyErr *domain.PolicyError
	if !errors.As(err, &policyErr) || len(policyErr.Problems) == 0 {
		t.Fatalf("expected policy problems, got %v", err)
	}
}

func TestSignupPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	req := validSignup()
	req.PasswordConfirm = "Different#Pass10"

	_, err := env.svc.Signup(context.Background(), req)
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestPreRegisterSendsSetupInvite(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.svc.PreRegister(context.Background(), domain.PreRegisterRequest{
		Username: "bruna",
		FullName: "Bruna Costa",
		Email:    "bruna@example.com",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("pre-register failed: %v", err)
	}
	if !user.IsActive() {
		t.Fatalf("expected active status, got %q", user.Status)
	}
	if user.HasPassword() {
		t.Fatal("expected no credential yet")
	}

	if len(env.mail.sent) != 1 || env.mail.sent[0].Kind != email.KindSetupInvite {
		t.Fatalf("expected one setup invite mail, got %+v", env.mail.sent)
	}

	// The invite link must be redeemable for a first password.
	parsed, err := url.Parse(env.mail.sent[0].CTAURL)
	if err != nil {
		t.Fatalf("failed to parse invite link: %v", err)
	}
	err = env.authSvc.ResetPassword(context.Background(), authdomain.ResetPasswordRequest{
		RawToken:        parsed.Query().Get("token"),
		NewPassword:     "Welcome#Pass19",
		PasswordConfirm: "Welcome#Pass19",
	})
	if err != nil {
		t.Fatalf("redeeming invite failed: %v", err)
	}
	if _, err := env.authSvc.Login(context.Background(), authdomain.LoginRequest{Username: "bruna", Password: "Welcome#Pass19"}); err != nil {
		t.Fatalf("login after setup failed: %v", err)
	}
}

func TestSignupCompletesPreRegistration(t *testing.T) {
	env := newTestEnv(t)

	pre, err := env.svc.PreRegister(context.Background(), domain.PreRegisterRequest{
		Username: "marina",
		FullName: "Marina Alves",
		Email:    "marina@example.com",
	})
	if err != nil {
		t.Fatalf("pre-register failed: %v", err)
	}

	user, err := env.svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("signup completion failed: %v", err)
	}
	if user.ID != pre.ID {
		t.Fatalf("expected the pre-registered row to be completed, got new id %v", user.ID)
	}
	if !user.IsActive() {
		t.Fatalf("expected pre-approved status preserved, got %q", user.Status)
	}
	if !user.HasPassword() {
		t.Fatal("expected credential after completion")
	}
	if user.ForcePasswordReset {
		t.Fatal("expected forced reset cleared after completion")
	}

	if _, err := env.authSvc.Login(context.Background(), authdomain.LoginRequest{Username: "marina", Password: "Strong#Pass10"}); err != nil {
		t.Fatalf("login after completion failed: %v", err)
	}
}

func TestApproveSendsApprovedMail(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, nil)

	user, err := env.svc.Approve(context.Background(), seeded.ID.String())
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !user.IsActive() {
		t.Fatalf("expected active status, got %q", user.Status)
	}
	if len(env.mail.sent) != 1 || env.mail.sent[0].Kind != email.KindApproved {
		t.Fatalf("expected approved mail, got %+v", env.mail.sent)
	}
}

func TestApprovePasswordlessSendsInvite(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, func(u *domain.User) { u.PasswordHash = "" })

	if _, err := env.svc.Approve(context.Background(), seeded.ID.String()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if len(env.mail.sent) != 1 || env.mail.sent[0].Kind != email.KindSetupInvite {
		t.Fatalf("expected setup invite mail, got %+v", env.mail.sent)
	}
}

func TestRejectKeepsRow(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, nil)

	user, err := env.svc.Reject(context.Background(), seeded.ID.String())
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if user.Status != domain.StatusRejected {
		t.Fatalf("expected rejected status, got %q", user.Status)
	}

	count, err := env.svc.CountPending(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no pending users, got %d", count)
	}
}

func TestRejectProtectsSuperadmin(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, func(u *domain.User) { u.Role = domain.RoleSuperAdmin })

	if _, err := env.svc.Reject(context.Background(), seeded.ID.String()); !errors.Is(err, domain.ErrProtectedUser) {
		t.Fatalf("expected ErrProtectedUser, got %v", err)
	}
	if err := env.svc.Delete(context.Background(), seeded.ID.String()); !errors.Is(err, domain.ErrProtectedUser) {
		t.Fatalf("expected ErrProtectedUser on delete, got %v", err)
	}
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, nil)

	user, err := env.svc.SetRole(context.Background(), domain.SetRoleRequest{UserID: seeded.ID.String(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", user.Role)
	}

	if _, err := env.svc.SetRole(context.Background(), domain.SetRoleRequest{UserID: seeded.ID.String(), Role: "owner"}); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := env.svc.SetRole(context.Background(), domain.SetRoleRequest{UserID: seeded.ID.String(), Role: domain.RoleSuperAdmin}); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole for superadmin grant, got %v", err)
	}
}

func TestAcceptTermsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedUser(t, nil)

	if err := env.svc.AcceptTerms(context.Background(), seeded.ID.String()); err != nil {
		t.Fatalf("accept terms failed: %v", err)
	}

	reloaded, err := env.svc.GetByID(context.Background(), seeded.ID.String())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reloaded.TermsAccepted() {
		t.Fatal("expected terms accepted")
	}
	first := *reloaded.TermsAcceptedAt

	env.clock.Advance(time.Hour)
	if err := env.svc.AcceptTerms(context.Background(), seeded.ID.String()); err != nil {
		t.Fatalf("second accept failed: %v", err)
	}
	reloaded, err = env.svc.GetByID(context.Background(), seeded.ID.String())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !reloaded.TermsAcceptedAt.Equal(first) {
		t.Fatal("expected first acceptance timestamp preserved")
	}
}

func TestListFiltersAndPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, nil)
	env.seedUser(t, func(u *domain.User) {
		u.Username = "otavio"
		u.Email = "otavio@example.com"
		u.Status = domain.StatusActive
	})

	resp, err := env.svc.List(context.Background(), domain.ListUsersRequest{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].Username != "helena" {
		t.Fatalf("expected only the pending user, got %+v", resp.Users)
	}

	count, err := env.svc.CountPending(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one pending user, got %d", count)
	}

	if _, err := env.svc.List(context.Background(), domain.ListUsersRequest{Status: "frozen"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
