package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pos-billing/internal/service"
)

type registerRequest struct {
	Name string `json:"name" binding:"required"`
	Mail string `json:"mail" binding:"required"`
	Pass string `json:"pass" binding:"required"`
}

type loginRequest struct {
	Mail string `json:"mail" binding:"required"`
	Pass string `json:"pass" binding:"required"`
}

type UserResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Mail      string `json:"mail"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Mail, req.Pass)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	h.log.WithField("user", user.ID).Info("user registered")
	c.JSON(http.StatusCreated, UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Mail:      user.Mail,
		CreatedAt: user.CreatedAt.Format(timeLayout),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.users.Authenticate(c.Request.Context(), req.Mail, req.Pass)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.Login(false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		h.log.WithError(err).Error("login lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	h.metrics.Login(true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}
