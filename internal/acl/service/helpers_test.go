package service

import (
	"context"
	"testing"
	"time"

	"github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bell24h/bell24h/internal/acl/repository"
	"github.com/bell24h/bell24h/internal/cache"
	"github.com/bell24h/bell24h/internal/clock"
	"github.com/bell24h/bell24h/internal/config"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	orgdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bell24h/bell24h/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	repo     domain.Repository
	svc      domain.Service
	resolver domain.Resolver
	clock    *clock.FakeClock
}

func newFixture(t *testing.T, permCache *cache.PermissionCache, rm *metrics.ResolverMetrics) *fixture {
	t.Helper()

	conn, err := db.NewTest(
		&orgdomain.Organization{},
		&orgdomain.Team{},
		&orgdomain.OrganizationMember{},
		&orgdomain.TeamMember{},
		&domain.AccessControlList{},
		&domain.AclRule{},
		&domain.AclAssignment{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(conn)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	return &fixture{
		db:   conn,
		repo: repo,
		svc: NewService(Params{
			DB:    conn,
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  repo,
			Clock: clk,
			Cache: permCache,
		}),
		resolver: NewResolver(ResolverParams{
			Log:             zap.NewNop(),
			Repo:            repo,
			Cache:           permCache,
			ResolverMetrics: rm,
		}),
		clock: clk,
	}
}

func (f *fixture) orgMember(t *testing.T, id, orgID, userID snowflake.ID, role string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID: id, OrganizationID: orgID, UserID: userID, Role: role, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func (f *fixture) teamMember(t *testing.T, id, teamID, userID snowflake.ID) {
	t.Helper()
	require.NoError(t, f.db.Create(&orgdomain.TeamMember{
		ID: id, TeamID: teamID, UserID: userID, Role: orgdomain.RoleMember, CreatedAt: f.clock.Now(),
	}).Error)
}

func (f *fixture) acl(t *testing.T, id snowflake.ID, orgID *snowflake.ID) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.repo.InsertAcl(context.Background(), domain.AccessControlList{
		ID: id, Name: "acl-" + id.String(), OrganizationID: orgID, CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) rule(t *testing.T, id, aclID snowflake.ID, resourceType string, resourceID *snowflake.ID, p domain.Permission) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.repo.InsertRule(context.Background(), domain.AclRule{
		ID: id, AclID: aclID, ResourceType: resourceType, ResourceID: resourceID, Permission: p, CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) assign(t *testing.T, id, aclID snowflake.ID, p domain.Principal) {
	t.Helper()
	a, err := domain.NewAclAssignment(id, aclID, p, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.InsertAssignment(context.Background(), a))
}

func idPtr(v snowflake.ID) *snowflake.ID { return &v }

func enabledCache() *cache.PermissionCache {
	access := config.NewStaticAccessConfigHolder(config.AccessConfig{
		Cache: config.DecisionCacheConfig{Enabled: true, TTL: time.Minute},
	})
	return cache.NewPermissionCache(cache.NewMemoryStore(), access, zap.NewNop(), nil)
}

// eachCacheMode runs fn against a fresh fixture without and with the
// decision cache. Both modes must give the same answers.
func eachCacheMode(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Helper()
	modes := []struct {
		name  string
		cache func() *cache.PermissionCache
	}{
		{name: "uncached", cache: func() *cache.PermissionCache { return nil }},
		{name: "cached", cache: enabledCache},
	}
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			fn(t, newFixture(t, mode.cache(), nil))
		})
	}
}

// effective resolves twice so the cached mode answers the second call from
// the cache, and requires both answers to agree.
func (f *fixture) effective(t *testing.T, userID snowflake.ID, resourceType string, resourceID *snowflake.ID) domain.Permission {
	t.Helper()
	first, err := f.resolver.EffectivePermission(context.Background(), userID, resourceType, resourceID)
	require.NoError(t, err)
	second, err := f.resolver.EffectivePermission(context.Background(), userID, resourceType, resourceID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	return first
}
