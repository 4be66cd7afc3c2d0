package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	organizationdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

type createOrganizationRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	OwnerUserID string  `json:"owner_user_id"`
}

// CreateOrganization is a platform administration action. The owner defaults
// to the caller.
func (s *Server) CreateOrganization(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ownerID, err := parseOptionalSnowflakeID(req.OwnerUserID)
	if err != nil {
		AbortWithError(c, newValidationError("owner_user_id", "invalid_owner_user_id", "invalid owner_user_id"))
		return
	}
	if ownerID == nil {
		ownerID = &userID
	}
	if err := s.authorizePlatformManager(c); err != nil {
		AbortWithError(c, err)
		return
	}

	org, err := s.organizationSvc.CreateOrganization(c.Request.Context(), *ownerID, organizationdomain.CreateOrganizationRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &org.ID, auditdomain.ActionOrganizationCreate, "organization", org.ID, map[string]any{
		"name":     org.Name,
		"slug":     org.Slug,
		"owner_id": ownerID.String(),
	})
	c.JSON(http.StatusCreated, org)
}

func (s *Server) ListOrganizations(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.organizationSvc.ListOrganizationsByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeMember(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	org, err := s.organizationSvc.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) AddOrganizationMember(c *gin.Context) {
	orgID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeManage(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := parseRequiredSnowflakeID("user_id", req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	member, err := s.organizationSvc.AddMember(c.Request.Context(), organizationdomain.AddMemberRequest{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &orgID, auditdomain.ActionMemberAdd, "organization_member", member.ID, map[string]any{
		"user_id": userID.String(),
		"role":    member.Role,
	})
	c.JSON(http.StatusCreated, member)
}

func (s *Server) RemoveOrganizationMember(c *gin.Context) {
	orgID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeManage(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.organizationSvc.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &orgID, auditdomain.ActionMemberRemove, "user", userID, nil)
	c.Status(http.StatusNoContent)
}
