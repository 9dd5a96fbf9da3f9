package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	authdomain "github.com/locafrota/fleetsla/internal/auth/domain"
	"github.com/locafrota/fleetsla/internal/auth/password"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/identity/domain"
	"github.com/locafrota/fleetsla/internal/providers/email"
	"github.com/locafrota/fleetsla/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Auth  authdomain.Service
	Mail  email.Provider
	Audit auditdomain.Recorder
}

type service struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	auth  authdomain.Service
	mail  email.Provider
	audit auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &service{
		cfg:   p.Cfg,
		db:    p.DB,
		log:   p.Log.Named("identity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		auth:  p.Auth,
		mail:  p.Mail,
		audit: p.Audit,
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	matricula := strings.TrimSpace(req.Matricula)
	emailAddr := strings.TrimSpace(req.Email)

	if username == "" || fullName == "" || emailAddr == "" || req.Password == "" || req.PasswordConfirm == "" {
		return nil, domain.ErrMissingFields
	}
	if req.Password != req.PasswordConfirm {
		return nil, domain.ErrPasswordMismatch
	}
	if problems := password.ValidatePolicy(req.Password, username, emailAddr); len(problems) > 0 {
		return nil, &domain.PolicyError{Problems: problems}
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	existing, err := s.repo.FindByEmail(ctx, s.db, emailAddr)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Pre-registered accounts carry no credential yet; signup completes
		// them. An account that already finished setup keeps its password.
		if existing.HasPassword() {
			return nil, domain.ErrEmailTaken
		}
		fields := map[string]any{
			"password_hash":        hash,
			"password_changed_at":  now,
			"force_password_reset": false,
			"updated_at":           now,
		}
		if existing.FullName == "" {
			fields["full_name"] = fullName
		}
		if existing.Matricula == "" && matricula != "" {
			fields["matricula"] = matricula
		}
		if err := s.repo.UpdateFields(ctx, s.db, existing.ID, fields); err != nil {
			return nil, err
		}

		s.audit.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionSignup,
			TargetType: "user",
			TargetID:   existing.ID.String(),
			Metadata:   map[string]any{"username": existing.Username, "completed_pre_registration": true},
		})
		return s.repo.FindByID(ctx, s.db, existing.ID)
	}

	taken, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, domain.ErrUsernameTaken
	}

	user := &domain.User{
		ID:                s.genID.Generate(),
		Username:          username,
		Email:             emailAddr,
		FullName:          fullName,
		Matricula:         matricula,
		PasswordHash:      hash,
		Role:              domain.RoleUser,
		Status:            domain.StatusPending,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionSignup,
		TargetType: "user",
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"username": username},
	})
	return user, nil
}

func (s *service) PreRegister(ctx context.Context, req domain.PreRegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	emailAddr := strings.TrimSpace(req.Email)

	if username == "" || fullName == "" || emailAddr == "" {
		return nil, domain.ErrMissingFields
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.ErrInvalidRole
	}

	if taken, err := s.repo.FindByUsername(ctx, s.db, username); err != nil {
		return nil, err
	} else if taken != nil {
		return nil, domain.ErrUsernameTaken
	}
	if taken, err := s.repo.FindByEmail(ctx, s.db, emailAddr); err != nil {
		return nil, err
	} else if taken != nil {
		return nil, domain.ErrEmailTaken
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:                 s.genID.Generate(),
		Username:           username,
		Email:              emailAddr,
		FullName:           fullName,
		Matricula:          strings.TrimSpace(req.Matricula),
		Role:               role,
		Status:             domain.StatusActive,
		ForcePasswordReset: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		return nil, err
	}

	s.sendSetupInvite(ctx, user)

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUserPreRegistered,
		TargetType: "user",
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"username": username, "role": role},
	})
	return user, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrNotFound
	}
	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *service) List(ctx context.Context, req domain.ListUsersRequest) (domain.ListUsersResponse, error) {
	status := strings.TrimSpace(req.Status)
	switch status {
	case "", domain.StatusPending, domain.StatusActive, domain.StatusRejected:
	default:
		return domain.ListUsersResponse{}, domain.ErrInvalidStatus
	}

	role := strings.TrimSpace(req.Role)
	switch role {
	case "", domain.RoleUser, domain.RoleAdmin, domain.RoleSuperAdmin:
	default:
		return domain.ListUsersResponse{}, domain.ErrInvalidRole
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListUserFilter{
		Status: status,
		Role:   role,
		Search: strings.TrimSpace(req.Search),
	}
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListUsersResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(user *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        user.ID.String(),
			CreatedAt: user.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}

	resp := domain.ListUsersResponse{Users: users}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) CountPending(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db, domain.ListUserFilter{Status: domain.StatusPending})
}

func (s *service) Approve(ctx context.Context, id string) (*domain.User, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	if user.IsActive() {
		return user, nil
	}

	now := s.clock.Now()
	err = s.repo.UpdateFields(ctx, s.db, user.ID, map[string]any{
		"status":     domain.StatusActive,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	user.Status = domain.StatusActive
	user.UpdatedAt = now

	if user.HasPassword() {
		s.sendApprovedMail(ctx, user)
	} else {
		s.sendSetupInvite(ctx, user)
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUserApproved,
		TargetType: "user",
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"username": user.Username},
	})
	return user, nil
}

func (s *service) Reject(ctx context.Context, id string) (*domain.User, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, domain.ErrProtectedUser
	}

	now := s.clock.Now()
	err = s.repo.UpdateFields(ctx, s.db, user.ID, map[string]any{
		"status":     domain.StatusRejected,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	user.Status = domain.StatusRejected
	user.UpdatedAt = now

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUserRejected,
		TargetType: "user",
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"username": user.Username},
	})
	return user, nil
}

func (s *service) SetRole(ctx context.Context, req domain.SetRoleRequest) (*domain.User, error) {
	role := strings.TrimSpace(req.Role)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.ErrInvalidRole
	}

	parsed, err := parseID(req.UserID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, domain.ErrProtectedUser
	}
	if user.Role == role {
		return user, nil
	}

	now := s.clock.Now()
	err = s.repo.UpdateFields(ctx, s.db, user.ID, map[string]any{
		"role":       role,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUserRoleChanged,
		TargetType: "user",
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"username": user.Username, "from": user.Role, "to": role},
	})

	user.Role = role
	user.UpdatedAt = now
	return user, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.Role == domain.RoleSuperAdmin {
		return domain.ErrProtectedUser
	}

	if err := s.repo.Delete(ctx, s.db, user.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUserDeleted,
		TargetType: "user",
		TargetID:   user.ID.String(),
		Metadata:   map[string]any{"username": user.Username},
	})
	return nil
}

func (s *service) AcceptTerms(ctx context.Context, id string) error {
	parsed, err := parseID(id)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.TermsAccepted() {
		return nil
	}

	now := s.clock.Now()
	err = s.repo.UpdateFields(ctx, s.db, user.ID, map[string]any{
		"terms_accepted_at": now,
		"updated_at":        now,
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionTermsAccepted,
		TargetType: "user",
		TargetID:   user.ID.String(),
	})
	return nil
}

func (s *service) sendSetupInvite(ctx context.Context, user *domain.User) {
	link, err := s.auth.IssueSetupLink(ctx, user.ID)
	if err != nil {
		s.log.Warn("failed to issue setup link", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}

	msg := email.Message{
		To:        []string{user.Email},
		Subject:   "Sua conta foi aprovada - Defina sua senha",
		Kind:      email.KindSetupInvite,
		Title:     "Defina sua senha",
		Subtitle:  "Sua conta foi aprovada no LocaFrota SLA. Defina sua senha para começar a usar.",
		BodyLines: []string{"O link é válido por 30 minutos."},
		CTALabel:  "Definir senha",
		CTAURL:    link,
		Footer:    "Se você não reconhece esta solicitação, ignore este e-mail.",
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("failed to send setup invite", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *service) sendApprovedMail(ctx context.Context, user *domain.User) {
	msg := email.Message{
		To:        []string{user.Email},
		Subject:   "Conta aprovada - LocaFrota SLA",
		Kind:      email.KindApproved,
		Title:     "Conta aprovada",
		Subtitle:  "Seu acesso ao LocaFrota SLA foi liberado.",
		BodyLines: []string{"Você já pode acessar a plataforma com seu usuário e senha."},
		CTALabel:  "Acessar plataforma",
		CTAURL:    s.cfg.BaseURL,
		Footer:    "Em caso de dúvidas, procure o administrador do sistema.",
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn("failed to send approval mail", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
