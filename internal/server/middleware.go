package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/token"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	obscontext "github.com/vebinua/it-staff-check-2.0-sub001/internal/observability/context"
)

// AuthRequired resolves the bearer token into an identity loaded from the store.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := token.FromHeader(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		id, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := identity.WithIdentity(c.Request.Context(), *id)
		ctx = obscontext.WithActorID(ctx, id.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole evaluates the caller's role against the policy for object/action.
func (s *Server) RequireRole(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), id.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequirePermission gates a module for non-admin callers.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !id.HasPermission(permission) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// RateLimit counts requests per client IP under name. The limit is read from
// settings on every request so reloads apply immediately.
func (s *Server) RateLimit(name string, limitOf func(config.Settings) int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		settings := s.settings.Get()
		window := time.Duration(settings.RateLimitWindowSecs) * time.Second

		decision := s.limiter.Allow(c.Request.Context(), name+":"+c.ClientIP(), limitOf(settings), window)
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), name)
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func loginLimit(s config.Settings) int    { return s.LoginRateLimit }
func feedbackLimit(s config.Settings) int { return s.FeedbackRateLimit }

func currentIdentity(c *gin.Context) (identity.Identity, bool) {
	return identity.FromContext(c.Request.Context())
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
