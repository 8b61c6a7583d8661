package httpapi

import (
	"io"
	"net/http"

	"nutrilens/internal/nutrition"
	"nutrilens/internal/user"

	"github.com/gin-gonic/gin"
)

// GetProfile returns the authenticated user's profile.
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.users.Get(c.Request.Context(), currentHandle(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile applies a partial update and returns the new profile with its
// recomputed target.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req user.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.users.UpdateProfile(c.Request.Context(), currentHandle(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": p})
}

// GetBMI reports BMI, its band and the goal summary.
func (h *Handler) GetBMI(c *gin.Context) {
	p, err := h.users.Get(c.Request.Context(), currentHandle(c))
	if err != nil {
		respondError(c, err)
		return
	}

	bmi, label, severity := p.BMI()
	c.JSON(http.StatusOK, gin.H{
		"bmi":                  bmi,
		"label":                label,
		"severity":             severity,
		"suggestion":           nutrition.BMISuggestion(severity),
		"daily_calorie_target": p.DailyCalorieTarget,
		"goal_summary":         nutrition.GoalSummary(string(p.Goal), p.DailyCalorieTarget),
	})
}

// PutProfileImage replaces the profile image from the multipart "image" field.
func (h *Handler) PutProfileImage(c *gin.Context) {
	data, _, err := readUpload(c, "image")
	if err != nil {
		respondUploadError(c, err)
		return
	}

	p, err := h.users.SetProfileImage(c.Request.Context(), currentHandle(c), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile image updated", "profile_image_id": p.ProfileImageID})
}

// GetProfileImage streams the stored profile image.
func (h *Handler) GetProfileImage(c *gin.Context) {
	data, err := h.users.ProfileImage(c.Request.Context(), currentHandle(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No profile image"})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// ActivityLevels lists the selectable activity labels.
func (h *Handler) ActivityLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activity_levels": nutrition.ActivityLevels})
}

// readUpload reads a multipart file field and returns its bytes and MIME type.
// Files over maxUploadBytes are rejected with errUploadTooLarge.
func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	if fh.Size > maxUploadBytes {
		return nil, "", errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxUploadBytes {
		return nil, "", errUploadTooLarge
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
