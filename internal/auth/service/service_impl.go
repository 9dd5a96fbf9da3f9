package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	"github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/auth/password"
	"github.com/locafrota/fleetsla/internal/auth/token"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/observability/metrics"
	"github.com/locafrota/fleetsla/internal/observability/obsctx"
	"github.com/locafrota/fleetsla/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg      config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Users    identitydomain.Repository
	Sessions domain.SessionRepository
	Resets   domain.ResetRepository
	Mail     email.Provider
	Audit    auditdomain.Recorder
	Obs      *metrics.Metrics
}

type service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	users    identitydomain.Repository
	sessions domain.SessionRepository
	resets   domain.ResetRepository
	mail     email.Provider
	audit    auditdomain.Recorder
	obs      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		cfg:      p.Cfg,
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		users:    p.Users,
		sessions: p.Sessions,
		resets:   p.Resets,
		mail:     p.Mail,
		audit:    p.Audit,
		obs:      p.Obs,
	}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.recordLoginFailure(ctx, username)
		return nil, domain.ErrInvalidCredentials
	}

	ok, needsRehash := password.Verify(req.Password, user.PasswordHash)
	if !ok {
		s.recordLoginFailure(ctx, username)
		return nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now()

	if needsRehash {
		// Upgrade legacy hashes in place before any status gate, so the
		// stored credential is never weaker than the current scheme.
		if newHash, hashErr := password.Hash(req.Password); hashErr == nil {
			upErr := s.users.UpdateFields(ctx, s.db, user.ID, map[string]any{
				"password_hash":       newHash,
				"password_changed_at": now,
				"updated_at":          now,
			})
			if upErr != nil {
				s.log.Warn("failed to upgrade legacy password hash", zap.String("user_id", user.ID.String()), zap.Error(upErr))
			} else {
				user.PasswordHash = newHash
				user.PasswordChangedAt = now
			}
		}
	}

	switch user.Status {
	case identitydomain.StatusActive:
	case identitydomain.StatusPending:
		return nil, domain.ErrAccountPending
	default:
		return nil, domain.ErrAccountRejected
	}

	rawToken, tokenHash, err := token.New()
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		IP:        req.IP,
		UserAgent: req.UserAgent,
		CreatedAt: now,
	}
	if err := s.sessions.Insert(ctx, s.db, session); err != nil {
		return nil, err
	}

	if err := s.users.UpdateFields(ctx, s.db, user.ID, map[string]any{"last_login_at": now}); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		lastLogin := now
		user.LastLoginAt = &lastLogin
	}

	ctx = obsctx.WithActor(ctx, obsctx.Actor{UserID: user.ID.String(), Email: user.Email, Role: user.Role})
	s.obs.RecordLogin("success")
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionLogin,
		TargetType: "user",
		TargetID:   user.ID.String(),
	})

	return &domain.LoginResult{
		User:               user,
		RawToken:           rawToken,
		ExpiresAt:          session.ExpiresAt,
		MustAcceptTerms:    !user.TermsAccepted(),
		MustChangePassword: user.MustChangePassword(now, s.cfg.PasswordMaxAge),
	}, nil
}

func (s *service) recordLoginFailure(ctx context.Context, username string) {
	s.obs.RecordLogin("failed")
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionLoginFailed,
		TargetType: "user",
		Metadata:   map[string]any{"username": username},
	})
}

func (s *service) Logout(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessions.FindByTokenHash(ctx, s.db, token.Hash(rawToken))
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrInvalidSession
	}

	if err := s.sessions.Revoke(ctx, s.db, session.ID, s.clock.Now()); err != nil {
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionLogout,
		TargetType: "session",
		TargetID:   session.ID.String(),
	})
	return nil
}

func (s *service) Authenticate(ctx context.Context, rawToken string) (*identitydomain.User, *domain.Session, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.FindByTokenHash(ctx, s.db, token.Hash(rawToken))
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, domain.ErrInvalidSession
	}
	if session.RevokedAt != nil {
		return nil, nil, domain.ErrSessionRevoked
	}
	if !s.clock.Now().Before(session.ExpiresAt) {
		return nil, nil, domain.ErrSessionExpired
	}

	user, err := s.users.FindByID(ctx, s.db, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive() {
		// Approval can be revoked after the session was issued.
		return nil, nil, domain.ErrInvalidSession
	}

	return user, session, nil
}

func (s *service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	if req.NewPassword == "" || req.PasswordConfirm == "" {
		return domain.ErrMissingFields
	}
	if req.NewPassword != req.PasswordConfirm {
		return domain.ErrPasswordMismatch
	}

	user, err := s.users.FindByID(ctx, s.db, req.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if problems := password.ValidatePolicy(req.NewPassword, user.Username, user.Email); len(problems) > 0 {
		return &identitydomain.PolicyError{Problems: problems}
	}
	if ok, _ := password.Verify(req.NewPassword, user.PasswordHash); ok {
		return domain.ErrSamePassword
	}

	return s.applyNewPassword(ctx, user, req.NewPassword, auditdomain.ActionPasswordChanged)
}

func (s *service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return domain.ErrEmailNotFound
	}

	user, err := s.users.FindByEmail(ctx, s.db, emailAddr)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrEmailNotFound
	}
	if !user.IsActive() {
		return domain.ErrAccountPending
	}

	link, err := s.issueResetLink(ctx, user)
	if err != nil {
		return err
	}

	msg := email.Message{
		To:        []string{user.Email},
		Subject:   "Redefinição de senha - LocaFrota SLA",
		Kind:      email.KindPasswordReset,
		Title:     "Redefinição de senha",
		Subtitle:  "Você solicitou redefinir sua senha no LocaFrota SLA.",
		BodyLines: []string{"Este link é válido por 30 minutos.", "Se você não solicitou, ignore este e-mail."},
		CTALabel:  "Redefinir senha",
		CTAURL:    link,
		Footer:    "Este é um e-mail automático. Não responda.",
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("failed to send password reset mail", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionPasswordResetRequested,
		TargetType: "user",
		TargetID:   user.ID.String(),
	})
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	rawToken := strings.TrimSpace(req.RawToken)
	if rawToken == "" {
		return domain.ErrInvalidToken
	}
	if req.NewPassword == "" || req.PasswordConfirm == "" {
		return domain.ErrMissingFields
	}
	if req.NewPassword != req.PasswordConfirm {
		return domain.ErrPasswordMismatch
	}

	reset, err := s.resets.FindByTokenHash(ctx, s.db, token.Hash(rawToken))
	if err != nil {
		return err
	}
	if reset == nil {
		return domain.ErrInvalidToken
	}

	now := s.clock.Now()
	if reset.UsedAt != nil {
		return domain.ErrInvalidToken
	}
	if !now.Before(reset.ExpiresAt) {
		return domain.ErrTokenExpired
	}

	user, err := s.users.FindByID(ctx, s.db, reset.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if problems := password.ValidatePolicy(req.NewPassword, user.Username, user.Email); len(problems) > 0 {
		return &identitydomain.PolicyError{Problems: problems}
	}
	if user.HasPassword() {
		if ok, _ := password.Verify(req.NewPassword, user.PasswordHash); ok {
			return domain.ErrSamePassword
		}
	}

	if err := s.resets.MarkUsed(ctx, s.db, reset.ID, now); err != nil {
		return err
	}
	return s.applyNewPassword(ctx, user, req.NewPassword, auditdomain.ActionPasswordResetCompleted)
}

func (s *service) IssueSetupLink(ctx context.Context, userID snowflake.ID) (string, error) {
	user, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrUserNotFound
	}
	return s.issueResetLink(ctx, user)
}

// issueResetLink invalidates outstanding tokens and stores a fresh one, so a
// user has at most one redeemable reset link at any time.
func (s *service) issueResetLink(ctx context.Context, user *identitydomain.User) (string, error) {
	if err := s.resets.InvalidateForUser(ctx, s.db, user.ID, s.clock.Now()); err != nil {
		return "", err
	}

	rawToken, tokenHash, err := token.New()
	if err != nil {
		return "", err
	}

	reset := &domain.PasswordReset{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: s.clock.Now().Add(s.cfg.ResetTokenTTL),
		CreatedAt: s.clock.Now(),
	}
	if err := s.resets.Insert(ctx, s.db, reset); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/auth/reset?token=%s", s.cfg.BaseURL, rawToken), nil
}

// applyNewPassword persists the hash, clears the forced-reset flag and burns
// any outstanding reset links for the user.
func (s *service) applyNewPassword(ctx context.Context, user *identitydomain.User, newPassword, action string) error {
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	err = s.users.UpdateFields(ctx, s.db, user.ID, map[string]any{
		"password_hash":        hash,
		"password_changed_at":  now,
		"force_password_reset": false,
		"updated_at":           now,
	})
	if err != nil {
		return err
	}

	if err := s.resets.InvalidateForUser(ctx, s.db, user.ID, now); err != nil {
		s.log.Warn("failed to invalidate reset tokens", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "user",
		TargetID:   user.ID.String(),
	})
	return nil
}
