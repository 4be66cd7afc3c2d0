package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bell24h/bell24h/internal/observability/metrics"
	orgdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEffectivePermissionExampleScenario(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		f.orgMember(t, 1000, 1, 5, orgdomain.RoleMember)
		f.acl(t, 10, idPtr(1))
		f.assign(t, 20, 10, domain.OrganizationPrincipal{OrganizationID: 1})
		f.rule(t, 30, 10, "rfq", nil, domain.PermissionUpdate)

		assert.Equal(t, domain.PermissionUpdate, f.effective(t, 5, "rfq", nil))
		assert.Equal(t, domain.PermissionNone, f.effective(t, 5, "quote", nil))
	})
}

func TestEffectivePermissionMostPermissiveWins(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		// read through team 7, full through organization 2.
		f.teamMember(t, 1000, 7, 5)
		f.orgMember(t, 1001, 2, 5, orgdomain.RoleMember)

		f.acl(t, 10, idPtr(1))
		f.assign(t, 20, 10, domain.TeamPrincipal{TeamID: 7})
		f.rule(t, 30, 10, "rfq", nil, domain.PermissionRead)

		f.acl(t, 11, idPtr(2))
		f.assign(t, 21, 11, domain.OrganizationPrincipal{OrganizationID: 2})
		f.rule(t, 31, 11, "rfq", nil, domain.PermissionFull)

		assert.Equal(t, domain.PermissionFull, f.effective(t, 5, "rfq", nil))
	})
}

func TestEffectivePermissionDirectUserAssignment(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		f.acl(t, 10, nil)
		f.assign(t, 20, 10, domain.UserPrincipal{UserID: 8})
		f.rule(t, 30, 10, "supplier", nil, domain.PermissionDelete)

		assert.Equal(t, domain.PermissionDelete, f.effective(t, 8, "supplier", nil))
		assert.Equal(t, domain.PermissionNone, f.effective(t, 9, "supplier", nil))
	})
}

func TestEffectivePermissionNoReachableAcl(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		f.acl(t, 10, idPtr(1))
		f.assign(t, 20, 10, domain.OrganizationPrincipal{OrganizationID: 1})
		f.rule(t, 30, 10, "rfq", nil, domain.PermissionFull)

		assert.Equal(t, domain.PermissionNone, f.effective(t, 123456, "rfq", nil))
	})
}

func TestEffectivePermissionResourceScopedRules(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		f.orgMember(t, 1000, 1, 5, orgdomain.RoleMember)
		f.acl(t, 10, idPtr(1))
		f.assign(t, 20, 10, domain.OrganizationPrincipal{OrganizationID: 1})
		f.rule(t, 30, 10, "rfq", nil, domain.PermissionRead)
		f.rule(t, 31, 10, "rfq", idPtr(42), domain.PermissionFull)

		cases := []struct {
			name       string
			resourceID *snowflake.ID
			want       domain.Permission
		}{
			{name: "specific resource", resourceID: idPtr(42), want: domain.PermissionFull},
			{name: "other resource", resourceID: idPtr(7), want: domain.PermissionRead},
			{name: "no resource", resourceID: nil, want: domain.PermissionRead},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				assert.Equal(t, tc.want, f.effective(t, 5, "rfq", tc.resourceID))
			})
		}
	})
}

func TestEffectivePermissionResourceTypeIsCaseSensitive(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		f.acl(t, 10, nil)
		f.assign(t, 20, 10, domain.UserPrincipal{UserID: 5})
		f.rule(t, 30, 10, "rfq", nil, domain.PermissionFull)

		assert.Equal(t, domain.PermissionFull, f.effective(t, 5, "rfq", nil))
		for _, spelling := range []string{"RFQ", "Rfq", "rfQ"} {
			assert.Equal(t, domain.PermissionNone, f.effective(t, 5, spelling, nil), spelling)
		}
	})
}

func TestEffectivePermissionRejectsEmptyResourceType(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.resolver.EffectivePermission(context.Background(), 5, "  ", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidResourceType)
}

func TestCheck(t *testing.T) {
	eachCacheMode(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.orgMember(t, 1000, 1, 5, orgdomain.RoleMember)
		f.acl(t, 10, idPtr(1))
		f.assign(t, 20, 10, domain.OrganizationPrincipal{OrganizationID: 1})
		f.rule(t, 30, 10, "rfq", nil, domain.PermissionUpdate)

		effective, allowed, err := f.resolver.Check(ctx, 5, "rfq", nil, domain.PermissionDelete)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, domain.PermissionUpdate, effective)

		_, allowed, err = f.resolver.Check(ctx, 5, "rfq", nil, domain.PermissionCreate)
		require.NoError(t, err)
		assert.False(t, allowed)

		effective, allowed, err = f.resolver.Check(ctx, 6, "rfq", nil, domain.PermissionNone)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, domain.PermissionNone, effective)
	})
}

func TestResolverCacheIsInvalidatedByMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, enabledCache(), nil)

	f.orgMember(t, 1000, 1, 5, orgdomain.RoleMember)
	acl, err := f.svc.CreateAcl(ctx, domain.CreateAclRequest{Name: "Buyers", OrganizationID: idPtr(1)})
	require.NoError(t, err)
	_, err = f.svc.CreateAssignment(ctx, domain.CreateAssignmentRequest{AclID: acl.ID, Principal: domain.OrganizationPrincipal{OrganizationID: 1}})
	require.NoError(t, err)
	rule, err := f.svc.CreateRule(ctx, domain.CreateRuleRequest{AclID: acl.ID, ResourceType: "rfq", Permission: "read"})
	require.NoError(t, err)

	got, err := f.resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionRead, got)

	// A write behind the service's back is masked by the cache.
	require.NoError(t, f.db.Exec(`UPDATE acl_rules SET permission = 'full' WHERE id = ?`, rule.ID).Error)
	got, err = f.resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionRead, got)

	create := "create"
	_, err = f.svc.UpdateRule(ctx, domain.UpdateRuleRequest{ID: rule.ID, Permission: &create})
	require.NoError(t, err)

	got, err = f.resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionCreate, got)

	require.NoError(t, f.svc.DeleteAcl(ctx, acl.ID))
	got, err = f.resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionNone, got)
}

// revokingRepository commits a revocation right after the resolver has read
// the matching rules, the way a concurrent writer would.
type revokingRepository struct {
	domain.Repository
	once   sync.Once
	revoke func()
}

func (r *revokingRepository) ListMatchingPermissions(ctx context.Context, match domain.RuleMatch) ([]domain.Permission, error) {
	permissions, err := r.Repository.ListMatchingPermissions(ctx, match)
	if err == nil && r.revoke != nil {
		r.once.Do(r.revoke)
	}
	return permissions, err
}

func TestResolverDoesNotCacheDecisionsOverlappingAWrite(t *testing.T) {
	ctx := context.Background()
	permCache := enabledCache()
	f := newFixture(t, permCache, nil)

	f.acl(t, 10, nil)
	f.assign(t, 20, 10, domain.UserPrincipal{UserID: 5})
	f.rule(t, 30, 10, "rfq", nil, domain.PermissionFull)

	repo := &revokingRepository{Repository: f.repo}
	repo.revoke = func() {
		require.NoError(t, f.svc.DeleteRule(ctx, 30))
	}
	resolver := NewResolver(ResolverParams{Log: zap.NewNop(), Repo: repo, Cache: permCache})

	// The in-flight resolution still sees the grant it read.
	got, err := resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionFull, got)

	got, err = resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionNone, got)
}

func TestResolverConcurrentReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, enabledCache(), nil)

	f.acl(t, 10, nil)
	f.rule(t, 30, 10, "rfq", nil, domain.PermissionFull)

	users := make([]snowflake.ID, 0, 8)
	for i := 0; i < 8; i++ {
		users = append(users, snowflake.ID(100+i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(users)*5)
	for _, userID := range users {
		wg.Add(1)
		go func(userID snowflake.ID) {
			defer wg.Done()
			_, err := f.svc.CreateAssignment(ctx, domain.CreateAssignmentRequest{AclID: 10, Principal: domain.UserPrincipal{UserID: userID}})
			errs <- err
		}(userID)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(userID snowflake.ID) {
				defer wg.Done()
				_, err := f.resolver.EffectivePermission(ctx, userID, "rfq", nil)
				errs <- err
			}(userID)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, userID := range users {
		assert.Equal(t, domain.PermissionFull, f.effective(t, userID, "rfq", nil), userID.String())
	}
}

func TestResolverMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rm := metrics.NewResolverMetrics(reg)
	f := newFixture(t, nil, rm)

	f.acl(t, 10, nil)
	f.assign(t, 20, 10, domain.UserPrincipal{UserID: 5})
	f.rule(t, 30, 10, "rfq", nil, domain.PermissionRead)

	_, err := f.resolver.EffectivePermission(ctx, 5, "rfq", nil)
	require.NoError(t, err)
	_, _, err = f.resolver.Check(ctx, 6, "rfq", nil, domain.PermissionRead)
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "bell24h_acl_resolutions_total", "outcome", metrics.OutcomeGranted))
	assert.Equal(t, 1.0, counterValue(t, reg, "bell24h_acl_resolutions_total", "outcome", metrics.OutcomeNone))
	assert.Equal(t, 1.0, counterValue(t, reg, "bell24h_http_access_denied_total", "guard", "permission"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
