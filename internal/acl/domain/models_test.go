package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idPtr(v snowflake.ID) *snowflake.ID { return &v }

func TestNewAclAssignmentWritesOneColumn(t *testing.T) {
	now := time.Now().UTC()

	a, err := NewAclAssignment(1, 10, TeamPrincipal{TeamID: 3}, now)
	require.NoError(t, err)
	assert.Nil(t, a.UserID)
	assert.Nil(t, a.OrganizationID)
	require.NotNil(t, a.TeamID)
	assert.Equal(t, snowflake.ID(3), *a.TeamID)

	p, err := a.Principal()
	require.NoError(t, err)
	assert.Equal(t, TeamPrincipal{TeamID: 3}, p)

	_, err = NewAclAssignment(1, 10, nil, now)
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	_, err = NewAclAssignment(1, 10, UserPrincipal{}, now)
	assert.ErrorIs(t, err, ErrInvalidAssignment)
}

func TestAclAssignmentPrincipalRejectsAmbiguousRows(t *testing.T) {
	cases := []struct {
		name string
		row  AclAssignment
	}{
		{name: "none set", row: AclAssignment{ID: 1, AclID: 2}},
		{name: "two set", row: AclAssignment{ID: 1, AclID: 2, UserID: idPtr(5), TeamID: idPtr(6)}},
		{name: "all set", row: AclAssignment{ID: 1, AclID: 2, UserID: idPtr(5), TeamID: idPtr(6), OrganizationID: idPtr(7)}},
		{name: "zero id", row: AclAssignment{ID: 1, AclID: 2, OrganizationID: idPtr(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.row.Principal()
			assert.ErrorIs(t, err, ErrInvalidAssignment)
		})
	}
}

func TestNewPrincipal(t *testing.T) {
	p, err := NewPrincipal(PrincipalOrganization, 1)
	require.NoError(t, err)
	assert.Equal(t, PrincipalOrganization, p.Kind())
	assert.Equal(t, snowflake.ID(1), p.PrincipalID())

	_, err = NewPrincipal("group", 1)
	assert.ErrorIs(t, err, ErrInvalidAssignment)
	_, err = NewPrincipal(PrincipalUser, 0)
	assert.ErrorIs(t, err, ErrInvalidAssignment)
}
