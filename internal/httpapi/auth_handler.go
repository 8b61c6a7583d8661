package httpapi

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"nutrilens/internal/user"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	user.RegistrationRequest
	// Optional data URL ("data:image/png;base64,...") or bare base64.
	ProfileImage string `json:"profile_image"`
}

// Register creates an account and returns the assigned user id.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ProfileImage != "" {
		img, err := decodeImage(req.ProfileImage)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.RegistrationRequest.ProfileImage = img
	}

	p, err := h.users.Register(c.Request.Context(), req.RegistrationRequest)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user_id": p.Handle,
		"user":    p,
	})
}

type loginRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges a user id and password for a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.users.Authenticate(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(p.Handle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": p})
}

type resetPasswordRequest struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword sets a new password for a user id whose registered email
// matches.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.UserID, req.Email, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

type recoverRequest struct {
	EmailOrName string `json:"email_or_name" binding:"required"`
}

// RecoverHandle looks up a forgotten user id.
func (h *Handler) RecoverHandle(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handle, err := h.users.RecoverHandle(c.Request.Context(), req.EmailOrName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": handle})
}

// NextUserID previews the id a registration would receive now.
func (h *Handler) NextUserID(c *gin.Context) {
	handle, err := h.users.NextHandle(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": handle})
}

func decodeImage(s string) ([]byte, error) {
	data := s
	if strings.HasPrefix(s, "data:") {
		parts := strings.SplitN(s, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid base64 image")
		}
		data = parts[1]
	}
	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	return img, nil
}
