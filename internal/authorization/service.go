package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	ObjectOrganization = "organization"

	ActionOrganizationManage = "manage"
)

// Service answers organization-level questions for the route layer. The ACL
// CRUD surface never calls it.
type Service interface {
	// CanManageOrganization is true iff the user is a manager, admin or owner of the organization.
	CanManageOrganization(ctx context.Context, orgID, userID snowflake.ID) (bool, error)
	IsMember(ctx context.Context, orgID, userID snowflake.ID) (bool, error)
	Authorize(ctx context.Context, orgID, userID snowflake.ID, object, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)
