package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/auth"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// RestUserHandler handles login and staff account administration.
type RestUserHandler struct {
	cfg         *config.Config
	userService services.IUserService
	now         services.Clock
}

func NewRestUserHandler(cfg *config.Config, userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{cfg: cfg, userService: userService, now: services.NewClock(cfg)}
}

type LoginArgs struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on successful login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"` // Seconds
	User      *models.User `json:"user"`
}

// Login handles POST /api/auth/login
func (h *RestUserHandler) Login(c *gin.Context) {
	var args LoginArgs
	if !bindJSON(c, &args) {
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), args.Email, args.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		zap.S().Infof("Login attempt failed for %s", args.Email)
		sendFailure(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}

	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL, h.now())
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	zap.S().Infof("Login successful for user %s (%s)", user.ID, user.Email)
	sendSuccess(c, http.StatusOK, AuthResponse{Token: token, ExpiresIn: int64(h.cfg.JwtTTL.Seconds()), User: user}, "")
}

// Me handles GET /api/auth/me
func (h *RestUserHandler) Me(c *gin.Context) {
	user, err := h.userService.FindByID(c.Request.Context(), middleware.ActorFrom(c).UserID)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, user, "")
}

// List handles GET /api/nguoi-dung
func (h *RestUserHandler) List(c *gin.Context) {
	page, ok := queryPage(c)
	if !ok {
		return
	}
	users, total, err := h.userService.List(c.Request.Context(), page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, users, page, total)
}

// Create handles POST /api/nguoi-dung
func (h *RestUserHandler) Create(c *gin.Context) {
	var in services.UserInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.userService.Create(c.Request.Context(), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusCreated, user, "User created")
}

// Suspend handles PUT /api/nguoi-dung/:id/khoa
func (h *RestUserHandler) Suspend(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userService.SuspendUser(c.Request.Context(), id, middleware.ActorFrom(c).UserID); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "User suspended")
}

// Unsuspend handles PUT /api/nguoi-dung/:id/mo-khoa
func (h *RestUserHandler) Unsuspend(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userService.UnsuspendUser(c.Request.Context(), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "User unsuspended")
}
