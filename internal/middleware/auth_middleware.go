package middleware

import (
	"errors"
	"net/http"
	"strings"

	"routeplanner/internal/utils"
	"routeplanner/pkg/identity"
	"routeplanner/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthRequired verifies the bearer token and puts the user id and principal
// in the context. The token may also come in the "token" query parameter,
// since browsers cannot set headers on a WebSocket handshake.
func AuthRequired(verifier identity.Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.LogSecurityEvent("token_rejected", "low", map[string]interface{}{
				"ip":    c.ClientIP(),
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			message := utils.ErrInvalidToken
			if errors.Is(err, identity.ErrTokenExpired) {
				message = utils.ErrTokenExpired
			}
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, principal.UserID)
		c.Set(utils.ContextPrincipal, principal)

		c.Next()
	}
}

func extractBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// CurrentPrincipal returns the principal set by AuthRequired.
func CurrentPrincipal(c *gin.Context) (*identity.Principal, bool) {
	v, ok := c.Get(utils.ContextPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*identity.Principal)
	return p, ok
}
