package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AclFilter struct {
	OrganizationID *snowflake.ID
	IncludeGlobal  bool
}

type RuleMatch struct {
	AclIDs       []snowflake.ID
	ResourceType string
	ResourceID   *snowflake.ID
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListAcls(ctx context.Context, filter AclFilter) ([]AccessControlList, error)
	GetAcl(ctx context.Context, id snowflake.ID) (*AccessControlList, error)
	InsertAcl(ctx context.Context, acl AccessControlList) error
	UpdateAcl(ctx context.Context, acl AccessControlList) error
	DeleteAcl(ctx context.Context, id snowflake.ID) error

	ListRules(ctx context.Context, aclID snowflake.ID) ([]AclRule, error)
	GetRule(ctx context.Context, id snowflake.ID) (*AclRule, error)
	InsertRule(ctx context.Context, rule AclRule) error
	UpdateRule(ctx context.Context, rule AclRule) error
	DeleteRule(ctx context.Context, id snowflake.ID) error
	DeleteRulesByAcl(ctx context.Context, aclID snowflake.ID) error

	ListAssignments(ctx context.Context, aclID snowflake.ID) ([]AclAssignment, error)
	GetAssignment(ctx context.Context, id snowflake.ID) (*AclAssignment, error)
	InsertAssignment(ctx context.Context, assignment AclAssignment) error
	DeleteAssignment(ctx context.Context, id snowflake.ID) error
	DeleteAssignmentsByAcl(ctx context.Context, aclID snowflake.ID) error

	// Resolver reads.
	ListMemberships(ctx context.Context, userID snowflake.ID) (orgIDs, teamIDs []snowflake.ID, err error)
	ListReachableAclIDs(ctx context.Context, userID snowflake.ID, orgIDs, teamIDs []snowflake.ID) ([]snowflake.ID, error)
	ListMatchingPermissions(ctx context.Context, match RuleMatch) ([]Permission, error)
}
