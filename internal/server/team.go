package server

import (
	"net/http"
	"strings"

	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	organizationdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListTeams(c *gin.Context) {
	orgID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeMember(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	teams, err := s.organizationSvc.ListTeams(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": teams})
}

type createTeamRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) CreateTeam(c *gin.Context) {
	orgID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeManage(c, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.organizationSvc.CreateTeam(c.Request.Context(), organizationdomain.CreateTeamRequest{
		OrganizationID: orgID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &orgID, auditdomain.ActionTeamCreate, "team", team.ID, map[string]any{
		"name": team.Name,
	})
	c.JSON(http.StatusCreated, team)
}

type addTeamMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) AddTeamMember(c *gin.Context) {
	team, ok := s.managedTeam(c)
	if !ok {
		return
	}

	var req addTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := parseRequiredSnowflakeID("user_id", req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	member, err := s.organizationSvc.AddTeamMember(c.Request.Context(), organizationdomain.AddTeamMemberRequest{
		TeamID: team.ID,
		UserID: userID,
		Role:   req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &team.OrganizationID, auditdomain.ActionTeamMemberAdd, "team_member", member.ID, map[string]any{
		"team_id": team.ID.String(),
		"user_id": userID.String(),
		"role":    member.Role,
	})
	c.JSON(http.StatusCreated, member)
}

func (s *Server) RemoveTeamMember(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	team, ok := s.managedTeam(c)
	if !ok {
		return
	}

	if err := s.organizationSvc.RemoveTeamMember(c.Request.Context(), team.ID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &team.OrganizationID, auditdomain.ActionTeamMemberRemove, "user", userID, map[string]any{
		"team_id": team.ID.String(),
	})
	c.Status(http.StatusNoContent)
}

// managedTeam loads the team named by :id and requires the caller to manage
// the team's organization. It aborts the request on failure.
func (s *Server) managedTeam(c *gin.Context) (*organizationdomain.Team, bool) {
	teamID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	team, err := s.organizationSvc.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if err := s.authorizeManage(c, team.OrganizationID); err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return team, true
}
