package handlers

import (
	"routeplanner/internal/middleware"
	"routeplanner/internal/services"
	"routeplanner/internal/utils"
	"routeplanner/pkg/identity"
	"routeplanner/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	verifier identity.Verifier
	sessions services.SessionManager
	audit    *logger.AuditLogger
	logger   *logger.Logger
}

func NewAuthHandler(verifier identity.Verifier, sessions services.SessionManager, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		sessions: sessions,
		audit:    logger.NewAuditLoggerFrom(log),
		logger:   log.WithField("component", "auth_handler"),
	}
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	utils.SuccessResponse(c, "Current user retrieved successfully", principal)
}

// Logout ends the planning session and revokes the user's tokens where the
// identity provider supports it.
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.sessions.End(c.Request.Context(), principal.UserID); err != nil {
		h.logger.WithError(err).WithUserID(principal.UserID).Warn("Failed to end planning session on logout")
	} else {
		h.audit.LogAction("end", "planning_session", principal.UserID, map[string]interface{}{
			"request_id": c.GetString(utils.ContextRequestID),
		})
	}

	success := true
	if err := h.verifier.Revoke(c.Request.Context(), principal.UserID); err != nil {
		success = false
		h.logger.WithError(err).WithUserID(principal.UserID).Error("Failed to revoke tokens")
	}
	h.audit.LogAuthEvent("logout", principal.UserID, c.ClientIP(), c.Request.UserAgent(), success)

	if !success {
		utils.InternalServerErrorResponse(c)
		return
	}
	utils.SuccessResponse(c, "Logged out successfully", nil)
}
