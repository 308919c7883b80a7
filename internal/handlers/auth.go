package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/services"
	"github.com/coursecal/coursecal-backend/internal/types"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		authService: authService,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	user := &types.User{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := h.authService.RegisterUser(c.Request.Context(), user); err != nil {
		h.log.Warn("Register failed", "error", err)
		RespondError(c, http.StatusBadRequest, "register_failed", err)
		return
	}
	access, refresh, err := h.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "login_after_register_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"user":          user,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	access, refresh, err := h.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "login_failed", fmt.Errorf("invalid email or password"))
		return
	}
	RespondOK(c, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    int(h.authService.GetAccessTTL().Seconds()),
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	access, refresh, err := h.authService.RefreshUser(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "refresh_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.LogoutUser(c.Request.Context()); err != nil {
		RespondError(c, http.StatusInternalServerError, "logout_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "logged_out"})
}
