package authorization

import (
	"context"
	"testing"
	"time"

	orgdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bell24h/bell24h/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest(&orgdomain.OrganizationMember{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	return NewService(Params{DB: conn, Log: zap.NewNop(), Enforcer: enforcer}), conn
}

func addMember(t *testing.T, conn *gorm.DB, id, orgID, userID snowflake.ID, role string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&orgdomain.OrganizationMember{
		ID: id, OrganizationID: orgID, UserID: userID, Role: role, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func TestCanManageOrganizationRoles(t *testing.T) {
	ctx := context.Background()
	svc, conn := newTestService(t)

	addMember(t, conn, 1, 1, 10, orgdomain.RoleOwner)
	addMember(t, conn, 2, 1, 11, orgdomain.RoleAdmin)
	addMember(t, conn, 3, 1, 12, orgdomain.RoleManager)
	addMember(t, conn, 4, 1, 13, orgdomain.RoleMember)
	addMember(t, conn, 5, 2, 14, orgdomain.RoleOwner)

	cases := []struct {
		name   string
		userID snowflake.ID
		want   bool
	}{
		{name: "owner", userID: 10, want: true},
		{name: "admin", userID: 11, want: true},
		{name: "manager", userID: 12, want: true},
		{name: "member", userID: 13, want: false},
		{name: "owner elsewhere", userID: 14, want: false},
		{name: "no membership", userID: 99, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.CanManageOrganization(ctx, 1, tc.userID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExampleScenarioMemberCannotManage(t *testing.T) {
	svc, conn := newTestService(t)
	addMember(t, conn, 1, 1, 5, orgdomain.RoleMember)

	ok, err := svc.CanManageOrganization(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	member, err := svc.IsMember(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestAuthorizeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	assert.ErrorIs(t, svc.Authorize(ctx, 1, 0, ObjectOrganization, ActionOrganizationManage), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, 0, 1, ObjectOrganization, ActionOrganizationManage), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, 1, 1, " ", ActionOrganizationManage), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, 1, 1, ObjectOrganization, ""), ErrInvalidAction)
}

func TestNewEnforcerIsIdempotent(t *testing.T) {
	conn, err := db.NewTest(&orgdomain.OrganizationMember{})
	require.NoError(t, err)

	_, err = NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 1)

	ok, err := enforcer.Enforce("role:owner", ObjectOrganization, ActionOrganizationManage)
	require.NoError(t, err)
	assert.True(t, ok)
}
