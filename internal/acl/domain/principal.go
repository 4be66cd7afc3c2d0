package domain

import "github.com/bwmarrin/snowflake"

const (
	PrincipalUser         = "user"
	PrincipalTeam         = "team"
	PrincipalOrganization = "organization"
)

// Principal is what an assignment binds an ACL to. The set of
// implementations is closed: UserPrincipal, TeamPrincipal, OrganizationPrincipal.
type Principal interface {
	Kind() string
	PrincipalID() snowflake.ID
	principal()
}

type UserPrincipal struct{ UserID snowflake.ID }

type TeamPrincipal struct{ TeamID snowflake.ID }

type OrganizationPrincipal struct{ OrganizationID snowflake.ID }

func (UserPrincipal) Kind() string { return PrincipalUser }
func (p UserPrincipal) PrincipalID() snowflake.ID { return p.UserID }
func (UserPrincipal) principal() {}

func (TeamPrincipal) Kind() string { return PrincipalTeam }
func (p TeamPrincipal) PrincipalID() snowflake.ID { return p.TeamID }
func (TeamPrincipal) principal() {}

func (OrganizationPrincipal) Kind() string { return PrincipalOrganization }
func (p OrganizationPrincipal) PrincipalID() snowflake.ID { return p.OrganizationID }
func (OrganizationPrincipal) principal() {}

// NewPrincipal builds a principal from its kind name.
func NewPrincipal(kind string, id snowflake.ID) (Principal, error) {
	if id == 0 {
		return nil, ErrInvalidAssignment
	}
	switch kind {
	case PrincipalUser:
		return UserPrincipal{UserID: id}, nil
	case PrincipalTeam:
		return TeamPrincipal{TeamID: id}, nil
	case PrincipalOrganization:
		return OrganizationPrincipal{OrganizationID: id}, nil
	default:
		return nil, ErrInvalidAssignment
	}
}
