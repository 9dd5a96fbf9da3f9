package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/locafrota/fleetsla/internal/audit/domain"
	identitydomain "github.com/locafrota/fleetsla/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Audit    auditdomain.Recorder `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	audit    auditdomain.Recorder
}

// NewEnforcer builds the synced enforcer backed by the casbin_rule table and
// seeds the role policies.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		audit:    p.Audit,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, subject string, role string, object string, action string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := resolveRole(subject, role)
	if err != nil {
		s.auditDenied(ctx, subject, object, action)
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, subject, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveRole(subject string, role string) (string, error) {
	if subject == SubjectSystem {
		return "role:system", nil
	}
	if raw, ok := strings.CutPrefix(subject, "user:"); ok {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return "", ErrInvalidActor
		}
		switch role {
		case identitydomain.RoleUser, identitydomain.RoleAdmin, identitydomain.RoleSuperAdmin:
			return "role:" + role, nil
		default:
			return "", ErrInvalidRole
		}
	}
	return "", ErrInvalidActor
}

// ensureGrouping keeps the subject linked to exactly its current role, so a
// role change takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject string, object string, action string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionAuthorizationDenied,
		TargetType: "capability",
		TargetID:   object,
		Metadata: map[string]any{
			"subject": subject,
			"object":  object,
			"action":  action,
		},
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:user", ObjectCalculator, ActionCalculatorUse},
		{"role:user", ObjectAnalysis, ActionAnalysisCreate},
		{"role:user", ObjectAnalysis, ActionAnalysisView},
		{"role:user", ObjectDeletionRequest, ActionDeletionRequestCreate},
		{"role:user", ObjectVehicle, ActionVehicleView},
		{"role:user", ObjectReport, ActionReportExport},
		{"role:user", ObjectTicket, ActionTicketCreate},
		{"role:user", ObjectTicket, ActionTicketView},
		{"role:user", ObjectAssistant, ActionAssistantUse},

		{"role:admin", ObjectAnalysis, ActionAnalysisViewAll},
		{"role:admin", ObjectAnalysis, ActionAnalysisDelete},
		{"role:admin", ObjectDeletionRequest, ActionDeletionRequestReview},
		{"role:admin", ObjectVehicle, ActionVehicleImport},
		{"role:admin", ObjectDashboard, ActionDashboardView},
		{"role:admin", ObjectTicket, ActionTicketReply},
		{"role:admin", ObjectUser, ActionUserManage},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{"role:admin", "role:user"},
		{"role:superadmin", "role:admin"},
		{"role:system", "role:admin"},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping[0], grouping[1]); err != nil {
			return err
		}
	}
	return nil
}
