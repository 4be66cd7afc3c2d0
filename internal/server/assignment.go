package server

import (
	"net/http"
	"strings"
	"time"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type principalView struct {
	Type string       `json:"type"`
	ID   snowflake.ID `json:"id"`
}

type assignmentView struct {
	ID        snowflake.ID  `json:"id"`
	AclID     snowflake.ID  `json:"acl_id"`
	Principal principalView `json:"principal"`
	CreatedAt time.Time     `json:"created_at"`
}

func newAssignmentView(a acldomain.AclAssignment) (assignmentView, error) {
	principal, err := a.Principal()
	if err != nil {
		return assignmentView{}, err
	}
	return assignmentView{
		ID:        a.ID,
		AclID:     a.AclID,
		Principal: principalView{Type: principal.Kind(), ID: principal.PrincipalID()},
		CreatedAt: a.CreatedAt,
	}, nil
}

func (s *Server) ListAssignments(c *gin.Context) {
	aclID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.loadManagedAcl(c, aclID); err != nil {
		AbortWithError(c, err)
		return
	}

	assignments, err := s.aclSvc.ListAssignments(c.Request.Context(), aclID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]assignmentView, 0, len(assignments))
	for _, assignment := range assignments {
		view, err := newAssignmentView(assignment)
		if err != nil {
			s.log.Warn("skipping malformed assignment", zap.String("assignment_id", assignment.ID.String()))
			continue
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

type createAssignmentRequest struct {
	PrincipalType string `json:"principal_type"`
	PrincipalID   string `json:"principal_id"`
}

func (s *Server) CreateAssignment(c *gin.Context) {
	aclID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	principalID, err := parseRequiredSnowflakeID("principal_id", req.PrincipalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	principal, err := acldomain.NewPrincipal(strings.ToLower(strings.TrimSpace(req.PrincipalType)), principalID)
	if err != nil {
		AbortWithError(c, newValidationError("principal_type", "invalid_principal_type", "principal_type must be user, team or organization"))
		return
	}
	acl, err := s.loadManagedAcl(c, aclID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.checkPrincipalInScope(c, acl, principal); err != nil {
		AbortWithError(c, err)
		return
	}

	assignment, err := s.aclSvc.CreateAssignment(c.Request.Context(), acldomain.CreateAssignmentRequest{
		AclID:     acl.ID,
		Principal: principal,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	view, err := newAssignmentView(*assignment)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclAssignmentCreate, "acl_assignment", assignment.ID, map[string]any{
		"acl_id":         acl.ID.String(),
		"principal_type": principal.Kind(),
		"principal_id":   principal.PrincipalID().String(),
	})
	c.JSON(http.StatusCreated, view)
}

func (s *Server) GetAssignment(c *gin.Context) {
	assignment, _, ok := s.managedAssignment(c)
	if !ok {
		return
	}
	view, err := newAssignmentView(*assignment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) DeleteAssignment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	assignment, err := s.aclSvc.GetAssignment(c.Request.Context(), id)
	if deletedAlready(c, err) {
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	acl, err := s.loadManagedAcl(c, assignment.AclID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.aclSvc.DeleteAssignment(c.Request.Context(), assignment.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, s.auditOrgID(acl.OrganizationID), auditdomain.ActionAclAssignmentDelete, "acl_assignment", assignment.ID, map[string]any{
		"acl_id": acl.ID.String(),
	})
	c.Status(http.StatusNoContent)
}

func (s *Server) managedAssignment(c *gin.Context) (*acldomain.AclAssignment, *acldomain.AccessControlList, bool) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}
	assignment, err := s.aclSvc.GetAssignment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}
	acl, err := s.loadManagedAcl(c, assignment.AclID)
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}
	return assignment, acl, true
}
