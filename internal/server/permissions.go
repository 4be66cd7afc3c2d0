package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type permissionQuery struct {
	ResourceType string `form:"resource_type"`
	ResourceID   string `form:"resource_id"`
	Permission   string `form:"permission"`
}

type effectivePermissionResponse struct {
	UserID       snowflake.ID         `json:"user_id"`
	ResourceType string               `json:"resource_type"`
	ResourceID   *snowflake.ID        `json:"resource_id,omitempty"`
	Permission   acldomain.Permission `json:"permission"`
}

type checkPermissionResponse struct {
	effectivePermissionResponse
	Required acldomain.Permission `json:"required"`
	Allowed  bool                 `json:"allowed"`
}

func bindPermissionQuery(c *gin.Context) (permissionQuery, *snowflake.ID, error) {
	var query permissionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return query, nil, invalidRequestError()
	}
	query.ResourceType = strings.TrimSpace(query.ResourceType)
	if query.ResourceType == "" {
		return query, nil, newValidationError("resource_type", "required", "resource_type is required")
	}
	resourceID, err := parseOptionalSnowflakeID(query.ResourceID)
	if err != nil {
		return query, nil, newValidationError("resource_id", "invalid_resource_id", "invalid resource_id")
	}
	return query, resourceID, nil
}

// GetEffectivePermission reports the caller's own effective permission.
func (s *Server) GetEffectivePermission(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	query, resourceID, err := bindPermissionQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	permission, err := s.resolver.EffectivePermission(c.Request.Context(), userID, query.ResourceType, resourceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, effectivePermissionResponse{
		UserID:       userID,
		ResourceType: query.ResourceType,
		ResourceID:   resourceID,
		Permission:   permission,
	})
}

// CheckPermission answers 200 when the caller holds at least the requested
// permission and 403 otherwise.
func (s *Server) CheckPermission(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	query, resourceID, err := bindPermissionQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	required, err := acldomain.ParsePermission(query.Permission)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	effective, allowed, err := s.resolver.Check(c.Request.Context(), userID, query.ResourceType, resourceID, required)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !allowed {
		AbortWithError(c, ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, checkPermissionResponse{
		effectivePermissionResponse: effectivePermissionResponse{
			UserID:       userID,
			ResourceType: query.ResourceType,
			ResourceID:   resourceID,
			Permission:   effective,
		},
		Required: required,
		Allowed:  true,
	})
}

// PermissionQueryRateLimit throttles resolver queries per authenticated user.
func (s *Server) PermissionQueryRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		res := s.limiter.Allow(c.Request.Context(), userID.String())
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
