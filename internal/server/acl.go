package server

import (
	"net/http"
	"strings"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

type listAclsQuery struct {
	OrganizationID string `form:"organization_id"`
	IncludeGlobal  string `form:"include_global"`
}

func (s *Server) ListAcls(c *gin.Context) {
	var query listAclsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	orgID, err := parseOptionalSnowflakeID(query.OrganizationID)
	if err != nil {
		AbortWithError(c, newValidationError("organization_id", "invalid_organization_id", "invalid organization_id"))
		return
	}
	includeGlobal, err := parseOptionalBool(query.IncludeGlobal)
	if err != nil {
		AbortWithError(c, newValidationError("include_global", "invalid_include_global", "invalid include_global"))
		return
	}

	if err := s.authorizeAclScope(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	req := acldomain.ListAclsRequest{OrganizationID: orgID}
	if includeGlobal != nil {
		req.IncludeGlobal = *includeGlobal
	}
	acls, err := s.aclSvc.ListAcls(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": acls})
}

type createAclRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	OrganizationID string  `json:"organization_id"`
}

func (s *Server) CreateAcl(c *gin.Context) {
	var req createAclRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	orgID, err := parseOptionalSnowflakeID(req.OrganizationID)
	if err != nil {
		AbortWithError(c, newValidationError("organization_id", "invalid_organization_id", "invalid organization_id"))
		return
	}
	if err := s.authorizeAclScope(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	acl, err := s.aclSvc.CreateAcl(c.Request.Context(), acldomain.CreateAclRequest{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		OrganizationID: orgID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclCreate, "acl", acl.ID, map[string]any{
		"name":   acl.Name,
		"global": acl.IsGlobal(),
	})
	c.JSON(http.StatusCreated, acl)
}

func (s *Server) GetAcl(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	acl, err := s.loadManagedAcl(c, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, acl)
}

type updateAclRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) UpdateAcl(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateAclRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	current, err := s.loadManagedAcl(c, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	acl, err := s.aclSvc.UpdateAcl(c.Request.Context(), acldomain.UpdateAclRequest{
		ID:          current.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclUpdate, "acl", acl.ID, map[string]any{
		"name": acl.Name,
	})
	c.JSON(http.StatusOK, acl)
}

func (s *Server) DeleteAcl(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	acl, err := s.loadManagedAcl(c, id)
	if deletedAlready(c, err) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.aclSvc.DeleteAcl(c.Request.Context(), acl.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclDelete, "acl", acl.ID, map[string]any{
		"name": acl.Name,
	})
	c.Status(http.StatusNoContent)
}
