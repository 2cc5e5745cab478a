package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devicelab/internal/middleware"
	"devicelab/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public endpoints on pub and the
// session-bound ones on protected.
func (h *Handler) RegisterRoutes(pub, protected *gin.RouterGroup) {
	pub.POST("/auth/register", h.register)
	pub.POST("/auth/login", h.login)

	protected.POST("/auth/logout", h.logout)
	protected.POST("/auth/change-password", h.changePassword)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	u, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u)
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	token, u, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"token": token, "user": u})
}

func (h *Handler) logout(c *gin.Context) {
	token := middleware.BearerToken(c)
	if err := h.svc.Logout(token); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	token := middleware.BearerToken(c)
	if err := h.svc.ChangePassword(c.Request.Context(), token, req.OldPassword, req.NewPassword); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": true})
}
