package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleMember  = "member"
	RoleManager = "manager"
	RoleAdmin   = "admin"
	RoleOwner   = "owner"
)

var organizationRoles = map[string]struct{}{
	RoleMember:  {},
	RoleManager: {},
	RoleAdmin:   {},
	RoleOwner:   {},
}

var teamRoles = map[string]struct{}{
	RoleMember:  {},
	RoleManager: {},
	RoleAdmin:   {},
}

// NormalizeOrganizationRole returns the canonical role or false when unknown.
func NormalizeOrganizationRole(role string) (string, bool) {
	role = strings.ToLower(strings.TrimSpace(role))
	_, ok := organizationRoles[role]
	return role, ok
}

// NormalizeTeamRole returns the canonical team role or false when unknown.
func NormalizeTeamRole(role string) (string, bool) {
	role = strings.ToLower(strings.TrimSpace(role))
	_, ok := teamRoles[role]
	return role, ok
}

type Service interface {
	CreateOrganization(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*Organization, error)
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)

	AddMember(ctx context.Context, req AddMemberRequest) (*OrganizationMember, error)
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error

	CreateTeam(ctx context.Context, req CreateTeamRequest) (*Team, error)
	GetTeam(ctx context.Context, id snowflake.ID) (*Team, error)
	ListTeams(ctx context.Context, orgID snowflake.ID) ([]Team, error)

	AddTeamMember(ctx context.Context, req AddTeamMemberRequest) (*TeamMember, error)
	RemoveTeamMember(ctx context.Context, teamID, userID snowflake.ID) error
}

type CreateOrganizationRequest struct {
	Name        string
	Description *string
}

type AddMemberRequest struct {
	OrganizationID snowflake.ID
	UserID         snowflake.ID
	Role           string
}

type CreateTeamRequest struct {
	OrganizationID snowflake.ID
	Name           string
	Description    *string
}

type AddTeamMemberRequest struct {
	TeamID snowflake.ID
	UserID snowflake.ID
	Role   string
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidTeam          = errors.New("invalid_team")
	ErrInvalidRole          = errors.New("invalid_role")
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrTeamNotFound         = errors.New("team_not_found")
	ErrAlreadyMember        = errors.New("already_member")
)
