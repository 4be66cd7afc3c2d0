// Package domain contains access-control lists, their rules and their
// assignments to principals.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AccessControlList is a named bundle of rules. A nil OrganizationID marks a global ACL.
type AccessControlList struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"type:text;not null" json:"name"`
	Description    *string       `gorm:"type:text" json:"description,omitempty"`
	OrganizationID *snowflake.ID `gorm:"index" json:"organization_id,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (AccessControlList) TableName() string { return "access_control_lists" }

func (a AccessControlList) IsGlobal() bool { return a.OrganizationID == nil }

// AclRule grants a permission on a resource type. A nil ResourceID applies
// the rule to every resource of that type.
type AclRule struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	AclID        snowflake.ID      `gorm:"not null;index:ix_acl_rules_acl_resource,priority:1" json:"acl_id"`
	ResourceType string            `gorm:"type:text;not null;index:ix_acl_rules_acl_resource,priority:2" json:"resource_type"`
	ResourceID   *snowflake.ID     `json:"resource_id,omitempty"`
	Permission   Permission        `gorm:"type:text;not null" json:"permission"`
	Conditions   datatypes.JSONMap `json:"conditions,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
}

func (AclRule) TableName() string { return "acl_rules" }

// AclAssignment is the stored form of an ACL bound to one principal.
type AclAssignment struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	AclID          snowflake.ID  `gorm:"not null;index"`
	UserID         *snowflake.ID `gorm:"index"`
	TeamID         *snowflake.ID `gorm:"index"`
	OrganizationID *snowflake.ID `gorm:"index"`
	CreatedAt      time.Time     `gorm:"not null"`
}

func (AclAssignment) TableName() string { return "acl_assignments" }

// NewAclAssignment writes exactly one principal column.
func NewAclAssignment(id, aclID snowflake.ID, p Principal, createdAt time.Time) (AclAssignment, error) {
	a := AclAssignment{ID: id, AclID: aclID, CreatedAt: createdAt}
	if p == nil || p.PrincipalID() == 0 {
		return a, ErrInvalidAssignment
	}
	principalID := p.PrincipalID()
	switch p.(type) {
	case UserPrincipal:
		a.UserID = &principalID
	case TeamPrincipal:
		a.TeamID = &principalID
	case OrganizationPrincipal:
		a.OrganizationID = &principalID
	default:
		return a, ErrInvalidAssignment
	}
	return a, nil
}

// Principal decodes the bound principal. Rows with zero or several
// principal columns set are rejected.
func (a AclAssignment) Principal() (Principal, error) {
	var found []Principal
	if a.UserID != nil && *a.UserID != 0 {
		found = append(found, UserPrincipal{UserID: *a.UserID})
	}
	if a.TeamID != nil && *a.TeamID != 0 {
		found = append(found, TeamPrincipal{TeamID: *a.TeamID})
	}
	if a.OrganizationID != nil && *a.OrganizationID != 0 {
		found = append(found, OrganizationPrincipal{OrganizationID: *a.OrganizationID})
	}
	if len(found) != 1 {
		return nil, ErrInvalidAssignment
	}
	return found[0], nil
}
