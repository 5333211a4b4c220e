// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/middleware"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
	"github.com/andre-sav/panopticon/internal/pkg/response"
	authService "github.com/andre-sav/panopticon/internal/service/auth"
)

// LoginRequest is the operator's credential payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthHandler struct {
	authService *authService.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(svc *authService.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: svc,
		logger:      logger,
	}
}

// Login authenticates the operator and issues a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "username and password are required", err)
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	switch {
	case xerrors.Is(err, xerrors.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, "too many login attempts, try again later", nil)
		return
	case xerrors.Is(err, xerrors.ErrUnauthorized):
		response.Unauthorized(c, "invalid credentials")
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "login failed", err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", session)
}

// Logout revokes the presented session token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		response.Unauthorized(c, "missing authorization token")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		if xerrors.Is(err, xerrors.ErrUnauthorized) {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}
