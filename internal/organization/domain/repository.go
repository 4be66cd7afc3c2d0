package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)

	AddMember(ctx context.Context, member OrganizationMember) error
	GetMember(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error

	CreateTeam(ctx context.Context, team Team) error
	GetTeam(ctx context.Context, id snowflake.ID) (*Team, error)
	ListTeams(ctx context.Context, orgID snowflake.ID) ([]Team, error)

	AddTeamMember(ctx context.Context, member TeamMember) error
	GetTeamMember(ctx context.Context, teamID, userID snowflake.ID) (*TeamMember, error)
	RemoveTeamMember(ctx context.Context, teamID, userID snowflake.ID) error
}
