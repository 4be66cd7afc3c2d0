package service

import (
	"context"
	"strings"
	"time"

	"github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bell24h/bell24h/internal/cache"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ResolverParams struct {
	fx.In

	Log             *zap.Logger
	Repo            domain.Repository
	Cache           *cache.PermissionCache   `optional:"true"`
	Metrics         *metrics.Metrics         `optional:"true"`
	ResolverMetrics *metrics.ResolverMetrics `optional:"true"`
}

type Resolver struct {
	log             *zap.Logger
	repo            domain.Repository
	cache           *cache.PermissionCache
	metrics         *metrics.Metrics
	resolverMetrics *metrics.ResolverMetrics
	tracer          trace.Tracer
}

func NewResolver(p ResolverParams) domain.Resolver {
	return &Resolver{
		log:             p.Log.Named("acl.resolver"),
		repo:            p.Repo,
		cache:           p.Cache,
		metrics:         p.Metrics,
		resolverMetrics: p.ResolverMetrics,
		tracer:          otel.Tracer("bell24h/acl"),
	}
}

// EffectivePermission unions every ACL the user reaches directly, through a
// team or through an organization, and returns the most permissive matching
// rule. Rules without a resource id match every resource of their type.
func (r *Resolver) EffectivePermission(ctx context.Context, userID snowflake.ID, resourceType string, resourceID *snowflake.ID) (domain.Permission, error) {
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		return domain.PermissionNone, domain.ErrInvalidResourceType
	}

	ctx, span := r.tracer.Start(ctx, "acl.EffectivePermission", trace.WithAttributes(
		attribute.String("acl.resource_type", resourceType),
		attribute.Bool("acl.resource_scoped", resourceID != nil),
	))
	defer span.End()

	start := time.Now()
	permission, cached, err := r.resolve(ctx, userID, resourceType, resourceID)
	r.resolverMetrics.ObserveResolution(time.Since(start), permission != domain.PermissionNone, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.PermissionNone, err
	}

	span.SetAttributes(
		attribute.String("acl.permission", permission.String()),
		attribute.Bool("acl.cached", cached),
	)
	r.metrics.RecordPermissionCheck(ctx, resourceType, permission.String())
	return permission, nil
}

func (r *Resolver) resolve(ctx context.Context, userID snowflake.ID, resourceType string, resourceID *snowflake.ID) (domain.Permission, bool, error) {
	key := cache.DecisionKey{UserID: userID.String(), ResourceType: resourceType}
	if resourceID != nil {
		key.ResourceID = resourceID.String()
	}
	raw, generation, ok := r.cache.Lookup(ctx, key)
	if ok {
		if permission, err := domain.ParsePermission(raw); err == nil {
			return permission, true, nil
		}
	}

	permission, err := r.resolveFromStore(ctx, userID, resourceType, resourceID)
	if err != nil {
		return domain.PermissionNone, false, err
	}
	r.cache.Store(ctx, generation, key, permission.String())
	return permission, false, nil
}

func (r *Resolver) resolveFromStore(ctx context.Context, userID snowflake.ID, resourceType string, resourceID *snowflake.ID) (domain.Permission, error) {
	orgIDs, teamIDs, err := r.repo.ListMemberships(ctx, userID)
	if err != nil {
		return domain.PermissionNone, err
	}

	aclIDs, err := r.repo.ListReachableAclIDs(ctx, userID, orgIDs, teamIDs)
	if err != nil {
		return domain.PermissionNone, err
	}
	if len(aclIDs) == 0 {
		return domain.PermissionNone, nil
	}

	permissions, err := r.repo.ListMatchingPermissions(ctx, domain.RuleMatch{
		AclIDs:       aclIDs,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
	if err != nil {
		return domain.PermissionNone, err
	}
	return domain.MostPermissive(permissions...), nil
}

// Check resolves the effective permission and compares it with required.
func (r *Resolver) Check(ctx context.Context, userID snowflake.ID, resourceType string, resourceID *snowflake.ID, required domain.Permission) (domain.Permission, bool, error) {
	if !required.Valid() {
		return domain.PermissionNone, false, domain.ErrInvalidPermission
	}
	effective, err := r.EffectivePermission(ctx, userID, resourceType, resourceID)
	if err != nil {
		return domain.PermissionNone, false, err
	}
	allowed := effective.Satisfies(required)
	if !allowed {
		r.resolverMetrics.ObserveDenial("permission")
		r.log.Debug("permission check denied",
			zap.String("user_id", userID.String()),
			zap.String("resource_type", resourceType),
			zap.Stringer("effective", effective),
			zap.Stringer("required", required),
		)
	}
	return effective, allowed, nil
}
