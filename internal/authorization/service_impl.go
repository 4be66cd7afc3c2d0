package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	orgdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Enforcer        *casbin.SyncedEnforcer
	AuditSvc        auditdomain.Service      `optional:"true"`
	ResolverMetrics *metrics.ResolverMetrics `optional:"true"`
}

type ServiceImpl struct {
	db              *gorm.DB
	log             *zap.Logger
	enforcer        *casbin.SyncedEnforcer
	auditSvc        auditdomain.Service
	resolverMetrics *metrics.ResolverMetrics
}

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
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:              p.DB,
		log:             p.Log.Named("authorization.service"),
		enforcer:        p.Enforcer,
		auditSvc:        p.AuditSvc,
		resolverMetrics: p.ResolverMetrics,
	}
}

func (s *ServiceImpl) CanManageOrganization(ctx context.Context, orgID, userID snowflake.ID) (bool, error) {
	err := s.Authorize(ctx, orgID, userID, ObjectOrganization, ActionOrganizationManage)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}

func (s *ServiceImpl) IsMember(ctx context.Context, orgID, userID snowflake.ID) (bool, error) {
	if orgID == 0 || userID == 0 {
		return false, nil
	}
	role, err := s.roleForUser(ctx, orgID, userID)
	if err != nil {
		return false, err
	}
	return role != "", nil
}

// Authorize returns ErrForbidden unless the user's organization role grants action on object.
func (s *ServiceImpl) Authorize(ctx context.Context, orgID, userID snowflake.ID, object, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	if orgID == 0 {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, err := s.roleForUser(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		s.denied(ctx, orgID, userID, object, action, "not_member")
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(ctx, orgID, userID, object, action, role)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE organization_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(row.Role)), nil
}

func (s *ServiceImpl) denied(ctx context.Context, orgID, userID snowflake.ID, object, action, role string) {
	s.resolverMetrics.ObserveDenial(ObjectOrganization)
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := orgID.String()
	if err := s.auditSvc.AuditLog(ctx, &orgID, "user", &actorID, "authorization.denied", ObjectOrganization, &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   role,
	}); err != nil {
		s.log.Warn("failed to audit denied authorization", zap.Error(err))
	}
}

func roleSubject(role string) string {
	return "role:" + role
}

// seedPolicies grants organization management to the manager tier. Admin
// inherits manager and owner inherits admin, so all three pass.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleSubject(orgdomain.RoleManager), ObjectOrganization, ActionOrganizationManage},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	links := [][]string{
		{roleSubject(orgdomain.RoleAdmin), roleSubject(orgdomain.RoleManager)},
		{roleSubject(orgdomain.RoleOwner), roleSubject(orgdomain.RoleAdmin)},
	}
	for _, link := range links {
		if _, err := enforcer.AddGroupingPolicy(link); err != nil {
			return err
		}
	}
	return nil
}
