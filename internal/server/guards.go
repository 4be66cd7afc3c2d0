package server

import (
	"errors"
	"net/http"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bell24h/bell24h/internal/authorization"
	organizationdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// authorizeManage passes only manager-tier members of orgID.
func (s *Server) authorizeManage(c *gin.Context, orgID snowflake.ID) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	return s.authzSvc.Authorize(c.Request.Context(), orgID, userID, authorization.ObjectOrganization, authorization.ActionOrganizationManage)
}

func (s *Server) authorizeMember(c *gin.Context, orgID snowflake.ID) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	member, err := s.authzSvc.IsMember(c.Request.Context(), orgID, userID)
	if err != nil {
		return err
	}
	if !member {
		s.resolverMetrics.ObserveDenial(authorization.ObjectOrganization)
		return ErrForbidden
	}
	return nil
}

func (s *Server) platformOrgID() (snowflake.ID, bool) {
	if s.cfg.DefaultOrgID <= 0 {
		return 0, false
	}
	return snowflake.ID(s.cfg.DefaultOrgID), true
}

// authorizePlatformManager passes manager-tier members of the platform
// organization. Without one configured nobody passes.
func (s *Server) authorizePlatformManager(c *gin.Context) error {
	platformID, ok := s.platformOrgID()
	if !ok {
		return ErrForbidden
	}
	return s.authorizeManage(c, platformID)
}

// authorizeAclScope gates administration of an organization's ACLs. Global
// ACLs belong to the platform organization's managers.
func (s *Server) authorizeAclScope(c *gin.Context, orgID *snowflake.ID) error {
	if orgID != nil {
		return s.authorizeManage(c, *orgID)
	}
	return s.authorizePlatformManager(c)
}

// checkPrincipalInScope keeps an organization's ACLs inside that
// organization: users must be members, teams must belong to it and the only
// organization principal is the organization itself. Global ACLs take any
// principal.
func (s *Server) checkPrincipalInScope(c *gin.Context, acl *acldomain.AccessControlList, principal acldomain.Principal) error {
	if acl.OrganizationID == nil {
		return nil
	}
	orgID := *acl.OrganizationID
	ctx := c.Request.Context()

	inScope := false
	switch p := principal.(type) {
	case acldomain.UserPrincipal:
		member, err := s.authzSvc.IsMember(ctx, orgID, p.UserID)
		if err != nil {
			return err
		}
		inScope = member
	case acldomain.TeamPrincipal:
		team, err := s.organizationSvc.GetTeam(ctx, p.TeamID)
		if err != nil && !errors.Is(err, organizationdomain.ErrTeamNotFound) {
			return err
		}
		inScope = team != nil && team.OrganizationID == orgID
	case acldomain.OrganizationPrincipal:
		inScope = p.OrganizationID == orgID
	}
	if !inScope {
		return newValidationError("principal_id", "principal_outside_organization", "principal must belong to the ACL's organization")
	}
	return nil
}

// deletedAlready answers a delete whose target is gone with 204, keeping
// DELETE idempotent.
func deletedAlready(c *gin.Context, err error) bool {
	if !errors.Is(err, acldomain.ErrNotFound) {
		return false
	}
	c.Status(http.StatusNoContent)
	return true
}

// loadManagedAcl returns the ACL only if the caller may administer it.
func (s *Server) loadManagedAcl(c *gin.Context, id snowflake.ID) (*acldomain.AccessControlList, error) {
	acl, err := s.aclSvc.GetAcl(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAclScope(c, acl.OrganizationID); err != nil {
		return nil, err
	}
	return acl, nil
}

// auditOrgID files audit entries for global ACLs under the platform organization.
func (s *Server) auditOrgID(orgID *snowflake.ID) *snowflake.ID {
	if orgID != nil {
		return orgID
	}
	if platformID, ok := s.platformOrgID(); ok {
		return &platformID
	}
	return nil
}

func (s *Server) audit(c *gin.Context, orgID *snowflake.ID, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	if err := s.auditSvc.AuditLog(c.Request.Context(), orgID, "", nil, action, targetType, &target, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
