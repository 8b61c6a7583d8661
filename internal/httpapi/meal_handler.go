package httpapi

import (
	"net/http"
	"strconv"

	"nutrilens/internal/app"

	"github.com/gin-gonic/gin"
)

// UploadMeal analyzes a meal photo and logs it. Form fields: image, category
// and optional notes.
func (h *Handler) UploadMeal(c *gin.Context) {
	data, mimeType, err := readUpload(c, "image")
	if err != nil {
		respondUploadError(c, err)
		return
	}

	result, err := h.app.UploadMeal(c.Request.Context(), currentHandle(c),
		c.PostForm("category"), data, mimeType, c.PostForm("notes"))
	if err != nil {
		// A meal that was saved but could not be summarized is still a success.
		if result.Meal.Category != "" {
			c.JSON(http.StatusCreated, gin.H{"meal": result.Meal, "warning": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Today summarizes the current day.
func (h *Handler) Today(c *gin.Context) {
	summary, err := h.app.Today(c.Request.Context(), currentHandle(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Day summarizes the date in the path.
func (h *Handler) Day(c *gin.Context) {
	summary, err := h.app.Day(c.Request.Context(), currentHandle(c), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Weekly returns the trailing series. The optional days query parameter sets
// the window length.
func (h *Handler) Weekly(c *gin.Context) {
	days := app.DefaultWindowDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	report, err := h.app.Week(c.Request.Context(), currentHandle(c), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Recommendation suggests the next meal.
func (h *Handler) Recommendation(c *gin.Context) {
	rec, suggestion, err := h.app.Recommend(c.Request.Context(), currentHandle(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec, "suggestion": suggestion})
}

// Health reports process and storage health.
func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.JSON(http.StatusOK, h.health())
}
