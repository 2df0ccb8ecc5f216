package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/auth"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/middleware"
	"github.com/studieren/mindjournal/models"
)

type AuthService interface {
	Signup(ctx context.Context, email, name, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

type AuthHandler struct {
	svc AuthService
	log *logger.Logger
}

func NewAuthHandler(svc AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log.With("handler", "AuthHandler")}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.log, err)
		return
	}
	sess, err := h.svc.Signup(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.log, err)
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, apperr.Unauthorized("missing or invalid token"))
		return
	}
	user, err := h.svc.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
