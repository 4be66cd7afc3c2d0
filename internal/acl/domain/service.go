package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ListAclsRequest struct {
	OrganizationID *snowflake.ID
	IncludeGlobal  bool
}

type CreateAclRequest struct {
	Name           string
	Description    *string
	OrganizationID *snowflake.ID
}

// UpdateAclRequest changes only the fields that are set. An empty
// Description clears it.
type UpdateAclRequest struct {
	ID          snowflake.ID
	Name        *string
	Description *string
}

type CreateRuleRequest struct {
	AclID        snowflake.ID
	ResourceType string
	ResourceID   *snowflake.ID
	Permission   string
	Conditions   datatypes.JSONMap
}

// UpdateRuleRequest changes only the fields that are set. ClearResourceID
// widens the rule to every resource of its type. A non-nil empty
// Conditions clears them.
type UpdateRuleRequest struct {
	ID              snowflake.ID
	ResourceType    *string
	ResourceID      *snowflake.ID
	ClearResourceID bool
	Permission      *string
	Conditions      *datatypes.JSONMap
}

type CreateAssignmentRequest struct {
	AclID     snowflake.ID
	Principal Principal
}

// Service is the CRUD surface over ACLs, rules and assignments. It performs
// no authorization; callers gate it with the organization guard.
type Service interface {
	ListAcls(ctx context.Context, req ListAclsRequest) ([]AccessControlList, error)
	GetAcl(ctx context.Context, id snowflake.ID) (*AccessControlList, error)
	CreateAcl(ctx context.Context, req CreateAclRequest) (*AccessControlList, error)
	UpdateAcl(ctx context.Context, req UpdateAclRequest) (*AccessControlList, error)
	DeleteAcl(ctx context.Context, id snowflake.ID) error

	ListRules(ctx context.Context, aclID snowflake.ID) ([]AclRule, error)
	GetRule(ctx context.Context, id snowflake.ID) (*AclRule, error)
	CreateRule(ctx context.Context, req CreateRuleRequest) (*AclRule, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*AclRule, error)
	DeleteRule(ctx context.Context, id snowflake.ID) error

	ListAssignments(ctx context.Context, aclID snowflake.ID) ([]AclAssignment, error)
	GetAssignment(ctx context.Context, id snowflake.ID) (*AclAssignment, error)
	CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*AclAssignment, error)
	DeleteAssignment(ctx context.Context, id snowflake.ID) error
}

// Resolver computes effective permissions. Unknown users resolve to none.
type Resolver interface {
	EffectivePermission(ctx context.Context, userID snowflake.ID, resourceType string, resourceID *snowflake.ID) (Permission, error)
	Check(ctx context.Context, userID snowflake.ID, resourceType string, resourceID *snowflake.ID, required Permission) (Permission, bool, error)
}

var (
	ErrNotFound            = errors.New("not_found")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPermission   = errors.New("invalid_permission")
	ErrInvalidResourceType = errors.New("invalid_resource_type")
	ErrInvalidAssignment   = errors.New("invalid_assignment")
)
