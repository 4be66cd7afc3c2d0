package server

import (
	"net/http"
	"strings"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

func (s *Server) ListRules(c *gin.Context) {
	aclID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.loadManagedAcl(c, aclID); err != nil {
		AbortWithError(c, err)
		return
	}

	rules, err := s.aclSvc.ListRules(c.Request.Context(), aclID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

type createRuleRequest struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Permission   string         `json:"permission"`
	Conditions   map[string]any `json:"conditions"`
}

func (s *Server) CreateRule(c *gin.Context) {
	aclID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resourceID, err := parseOptionalSnowflakeID(req.ResourceID)
	if err != nil {
		AbortWithError(c, newValidationError("resource_id", "invalid_resource_id", "invalid resource_id"))
		return
	}
	acl, err := s.loadManagedAcl(c, aclID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.aclSvc.CreateRule(c.Request.Context(), acldomain.CreateRuleRequest{
		AclID:        acl.ID,
		ResourceType: req.ResourceType,
		ResourceID:   resourceID,
		Permission:   req.Permission,
		Conditions:   datatypes.JSONMap(req.Conditions),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclRuleCreate, "acl_rule", rule.ID, ruleAuditMetadata(rule))
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) GetRule(c *gin.Context) {
	rule, _, ok := s.managedRule(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rule)
}

// updateRuleRequest treats an empty resource_id as "every resource of the type".
type updateRuleRequest struct {
	ResourceType *string         `json:"resource_type"`
	ResourceID   *string         `json:"resource_id"`
	Permission   *string         `json:"permission"`
	Conditions   *map[string]any `json:"conditions"`
}

func (s *Server) UpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := acldomain.UpdateRuleRequest{
		ResourceType: req.ResourceType,
		Permission:   req.Permission,
	}
	if req.ResourceID != nil {
		if strings.TrimSpace(*req.ResourceID) == "" {
			update.ClearResourceID = true
		} else {
			resourceID, err := parseOptionalSnowflakeID(*req.ResourceID)
			if err != nil {
				AbortWithError(c, newValidationError("resource_id", "invalid_resource_id", "invalid resource_id"))
				return
			}
			update.ResourceID = resourceID
		}
	}
	if req.Conditions != nil {
		conditions := datatypes.JSONMap(*req.Conditions)
		update.Conditions = &conditions
	}

	current, acl, ok := s.managedRule(c)
	if !ok {
		return
	}
	update.ID = current.ID

	rule, err := s.aclSvc.UpdateRule(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclRuleUpdate, "acl_rule", rule.ID, ruleAuditMetadata(rule))
	c.JSON(http.StatusOK, rule)
}

func (s *Server) DeleteRule(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	rule, err := s.aclSvc.GetRule(c.Request.Context(), id)
	if deletedAlready(c, err) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	acl, err := s.loadManagedAcl(c, rule.AclID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.aclSvc.DeleteRule(c.Request.Context(), rule.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclRuleDelete, "acl_rule", rule.ID, ruleAuditMetadata(rule))
	c.Status(http.StatusNoContent)
}

// managedRule loads the rule named by :id together with its ACL, aborting
// unless the caller administers that ACL.
func (s *Server) managedRule(c *gin.Context) (*acldomain.AclRule, *acldomain.AccessControlList, bool) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}
	rule, err := s.aclSvc.GetRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}
	acl, err := s.loadManagedAcl(c, rule.AclID)
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}
	return rule, acl, true
}

func ruleAuditMetadata(rule *acldomain.AclRule) map[string]any {
	metadata := map[string]any{
		"acl_id":        rule.AclID.String(),
		"resource_type": rule.ResourceType,
		"permission":    rule.Permission.String(),
	}
	if rule.ResourceID != nil {
		metadata["resource_id"] = rule.ResourceID.String()
	}
	return metadata
}
