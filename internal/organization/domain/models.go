// Package domain contains persistence models for organizations, teams and memberships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization is the top-level tenant boundary.
type Organization struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Description *string      `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// Team always belongs to exactly one organization.
type Team struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	OrganizationID snowflake.ID `gorm:"not null;index" json:"organization_id"`
	Description    *string      `gorm:"type:text" json:"description,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// OrganizationMember represents membership of a user in an organization.
type OrganizationMember struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID snowflake.ID `gorm:"not null;uniqueIndex:ux_organization_members_org_user,priority:1" json:"organization_id"`
	UserID         snowflake.ID `gorm:"not null;index;uniqueIndex:ux_organization_members_org_user,priority:2" json:"user_id"`
	Role           string       `gorm:"type:text;not null" json:"role"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }

// TeamMember represents membership of a user in a team.
type TeamMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID    snowflake.ID `gorm:"not null;uniqueIndex:ux_team_members_team_user,priority:1" json:"team_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_team_members_team_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (TeamMember) TableName() string { return "team_members" }
