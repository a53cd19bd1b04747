package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/services"
)

type AuthServiceAPI interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	ObtainTokens(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(refreshToken string) (string, error)
	Verify(token string) error
}

type AuthController struct {
	service AuthServiceAPI
}

func NewAuthController(s AuthServiceAPI) *AuthController {
	return &AuthController{service: s}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

func (ctrl *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	user, err := ctrl.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (ctrl *AuthController) ObtainToken(c *gin.Context) {
	var req tokenRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	pair, err := ctrl.service.ObtainTokens(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (ctrl *AuthController) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	access, err := ctrl.service.Refresh(req.Refresh)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (ctrl *AuthController) VerifyToken(c *gin.Context) {
	var req verifyRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	if err := ctrl.service.Verify(req.Token); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
