package domain

import (
	"context"
	"errors"

	"github.com/bell24h/bell24h/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

const (
	ActionAclCreate           = "acl.create"
	ActionAclUpdate           = "acl.update"
	ActionAclDelete           = "acl.delete"
	ActionAclRuleCreate       = "acl_rule.create"
	ActionAclRuleUpdate       = "acl_rule.update"
	ActionAclRuleDelete       = "acl_rule.delete"
	ActionAclAssignmentCreate = "acl_assignment.create"
	ActionAclAssignmentDelete = "acl_assignment.delete"
	ActionOrganizationCreate  = "organization.create"
	ActionMemberAdd           = "organization_member.add"
	ActionMemberRemove        = "organization_member.remove"
	ActionTeamCreate          = "team.create"
	ActionTeamMemberAdd       = "team_member.add"
	ActionTeamMemberRemove    = "team_member.remove"
)

// ListAuditLogRequest narrows an organization's trail. TargetID is only
// meaningful together with TargetType.
type ListAuditLogRequest struct {
	pagination.Pagination
	OrganizationID snowflake.ID
	Action         string
	TargetType     string
	TargetID       string
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrInvalidTarget       = errors.New("invalid_target")
)
