package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/enrollment-api/internal/authz"
	"github.com/campushub/enrollment-api/internal/models"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/response"
)

// RequireAction rejects requests whose authenticated role cannot perform the
// action. Tenant scoping is enforced again at the service layer; this gate
// keeps obviously unauthorized roles from reaching handlers at all.
func RequireAction(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !authz.Can(claims.Role, action) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
