package authHandler

import (
	"net/http"

	"cloud-storage/internal/handler/respond"
	"cloud-storage/internal/service/authService"
	"cloud-storage/pkg/middleware"
	"cloud-storage/pkg/validator"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *authService.AuthService
}

func New(service *authService.AuthService) *AuthHandler {
	return &AuthHandler{authService: service}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	UserID       uint32 `json:"user_id" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register mounts the account routes. private authenticates the caller;
// public guards the routes that issue credentials.
func (h *AuthHandler) Register(r gin.IRouter, private, public []gin.HandlerFunc) {
	with := func(chain []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, chain...), handler)
	}

	auth := r.Group("/auth")
	auth.POST("/register/", with(public, h.SignUp)...)
	auth.POST("/login/", with(public, h.Login)...)
	auth.POST("/refresh/", with(public, h.Refresh)...)
	auth.POST("/logout/", with(private, h.Logout)...)

	r.GET("/users/me/", with(private, h.Me)...)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body.")
		return
	}

	u, err := h.authService.Register(c.Request.Context(), validator.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "user_id and refresh_token are required")
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
		return
	}
	if err := h.authService.Logout(c.Request.Context(), p.ID, middleware.TokenFrom(c)); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
		return
	}
	u, err := h.authService.Me(c.Request.Context(), p.ID)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
