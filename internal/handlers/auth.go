package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/kitchenshare/kitchenshare/internal/auth"
	"github.com/kitchenshare/kitchenshare/internal/middleware"
	"github.com/kitchenshare/kitchenshare/internal/models"
	"github.com/kitchenshare/kitchenshare/internal/services"
	appErrors "github.com/kitchenshare/kitchenshare/pkg/errors"
	"github.com/kitchenshare/kitchenshare/pkg/metrics"
	"github.com/kitchenshare/kitchenshare/pkg/response"
)

// AuthHandler exposes registration, login and profile endpoints.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty,max=128"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to issue token"))
		return
	}

	response.Success(c, http.StatusCreated, authResponse{Token: token, User: user})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	user, err := h.users.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	token, err := h.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to issue token"))
		return
	}

	response.Success(c, http.StatusOK, authResponse{Token: token, User: user})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
