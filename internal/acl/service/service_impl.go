package service

import (
	"context"
	"strings"

	"github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bell24h/bell24h/internal/cache"
	"github.com/bell24h/bell24h/internal/clock"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Cache   *cache.PermissionCache `optional:"true"`
	Metrics *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	cache   *cache.PermissionCache
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("acl.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		cache:   p.Cache,
		metrics: p.Metrics,
	}
}

func (s *Service) ListAcls(ctx context.Context, req domain.ListAclsRequest) ([]domain.AccessControlList, error) {
	return s.repo.ListAcls(ctx, domain.AclFilter{
		OrganizationID: req.OrganizationID,
		IncludeGlobal:  req.IncludeGlobal,
	})
}

func (s *Service) GetAcl(ctx context.Context, id snowflake.ID) (*domain.AccessControlList, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	acl, err := s.repo.GetAcl(ctx, id)
	if err != nil {
		return nil, err
	}
	if acl == nil {
		return nil, domain.ErrNotFound
	}
	return acl, nil
}

func (s *Service) CreateAcl(ctx context.Context, req domain.CreateAclRequest) (*domain.AccessControlList, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.OrganizationID != nil && *req.OrganizationID == 0 {
		return nil, domain.ErrInvalidID
	}

	now := s.clock.Now()
	acl := domain.AccessControlList{
		ID:             s.genID.Generate(),
		Name:           name,
		Description:    normalizeOptional(req.Description),
		OrganizationID: req.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertAcl(ctx, acl); err != nil {
		return nil, err
	}

	s.mutated(ctx, "acl", "create")
	return &acl, nil
}

func (s *Service) UpdateAcl(ctx context.Context, req domain.UpdateAclRequest) (*domain.AccessControlList, error) {
	if req.ID == 0 {
		return nil, domain.ErrInvalidID
	}

	var updated domain.AccessControlList
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		acl, err := repo.GetAcl(ctx, req.ID)
		if err != nil {
			return err
		}
		if acl == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			acl.Name = name
		}
		if req.Description != nil {
			acl.Description = normalizeOptional(req.Description)
		}
		acl.UpdatedAt = s.clock.Now()

		if err := repo.UpdateAcl(ctx, *acl); err != nil {
			return err
		}
		updated = *acl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, "acl", "update")
	return &updated, nil
}

// DeleteAcl removes rules, then assignments, then the ACL in one
// transaction. Deleting a missing ACL succeeds.
func (s *Service) DeleteAcl(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteRulesByAcl(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteAssignmentsByAcl(ctx, id); err != nil {
			return err
		}
		return repo.DeleteAcl(ctx, id)
	})
	if err != nil {
		return err
	}

	s.mutated(ctx, "acl", "delete")
	return nil
}

func (s *Service) ListRules(ctx context.Context, aclID snowflake.ID) ([]domain.AclRule, error) {
	if aclID == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListRules(ctx, aclID)
}

func (s *Service) GetRule(ctx context.Context, id snowflake.ID) (*domain.AclRule, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (*domain.AclRule, error) {
	if req.AclID == 0 {
		return nil, domain.ErrInvalidID
	}
	resourceType := strings.TrimSpace(req.ResourceType)
	if resourceType == "" {
		return nil, domain.ErrInvalidResourceType
	}
	permission, err := domain.ParsePermission(req.Permission)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rule := domain.AclRule{
		ID:           s.genID.Generate(),
		AclID:        req.AclID,
		ResourceType: resourceType,
		ResourceID:   req.ResourceID,
		Permission:   permission,
		Conditions:   normalizeConditions(req.Conditions),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertRule(ctx, rule); err != nil {
		return nil, err
	}

	s.mutated(ctx, "acl_rule", "create")
	return &rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, req domain.UpdateRuleRequest) (*domain.AclRule, error) {
	if req.ID == 0 {
		return nil, domain.ErrInvalidID
	}

	var permission *domain.Permission
	if req.Permission != nil {
		parsed, err := domain.ParsePermission(*req.Permission)
		if err != nil {
			return nil, err
		}
		permission = &parsed
	}

	var updated domain.AclRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rule, err := repo.GetRule(ctx, req.ID)
		if err != nil {
			return err
		}
		if rule == nil {
			return domain.ErrNotFound
		}

		if req.ResourceType != nil {
			resourceType := strings.TrimSpace(*req.ResourceType)
			if resourceType == "" {
				return domain.ErrInvalidResourceType
			}
			rule.ResourceType = resourceType
		}
		switch {
		case req.ClearResourceID:
			rule.ResourceID = nil
		case req.ResourceID != nil:
			rule.ResourceID = req.ResourceID
		}
		if permission != nil {
			rule.Permission = *permission
		}
		if req.Conditions != nil {
			rule.Conditions = normalizeConditions(*req.Conditions)
		}
		rule.UpdatedAt = s.clock.Now()

		if err := repo.UpdateRule(ctx, *rule); err != nil {
			return err
		}
		updated = *rule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, "acl_rule", "update")
	return &updated, nil
}

func (s *Service) DeleteRule(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.mutated(ctx, "acl_rule", "delete")
	return nil
}

func (s *Service) ListAssignments(ctx context.Context, aclID snowflake.ID) ([]domain.AclAssignment, error) {
	if aclID == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListAssignments(ctx, aclID)
}

func (s *Service) GetAssignment(ctx context.Context, id snowflake.ID) (*domain.AclAssignment, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	assignment, err := s.repo.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, domain.ErrNotFound
	}
	return assignment, nil
}

func (s *Service) CreateAssignment(ctx context.Context, req domain.CreateAssignmentRequest) (*domain.AclAssignment, error) {
	if req.AclID == 0 {
		return nil, domain.ErrInvalidID
	}
	assignment, err := domain.NewAclAssignment(s.genID.Generate(), req.AclID, req.Principal, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.InsertAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	s.mutated(ctx, "acl_assignment", "create")
	return &assignment, nil
}

func (s *Service) DeleteAssignment(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	if err := s.repo.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	s.mutated(ctx, "acl_assignment", "delete")
	return nil
}

func (s *Service) mutated(ctx context.Context, entity, operation string) {
	s.cache.Invalidate(ctx)
	s.metrics.RecordMutation(ctx, entity, operation)
	s.log.Debug("acl store mutated", zap.String("entity", entity), zap.String("operation", operation))
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeConditions(conditions map[string]any) map[string]any {
	if len(conditions) == 0 {
		return nil
	}
	return conditions
}
