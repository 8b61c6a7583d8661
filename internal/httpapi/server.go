// Package httpapi exposes the meal tracker over HTTP with gin.
package httpapi

import (
	"nutrilens/internal/app"
	"nutrilens/internal/auth"
	"nutrilens/internal/metrics"
	"nutrilens/internal/user"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds meal and profile photos.
const maxUploadBytes = 10 << 20

// Handler serves the HTTP API.
type Handler struct {
	users  *user.Service
	app    *app.App
	tokens *auth.TokenIssuer
	health func() metrics.SysHealth
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(users *user.Service, a *app.App, tokens *auth.TokenIssuer, health func() metrics.SysHealth) *Handler {
	return &Handler{users: users, app: a, tokens: tokens, health: health}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger())
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/health", h.Health)
	r.GET("/activity-levels", h.ActivityLevels)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/reset-password", h.ResetPassword)
		authGroup.POST("/recover", h.RecoverHandle)
		authGroup.GET("/next-user-id", h.NextUserID)
	}

	api := r.Group("/", AuthMiddleware(h.tokens))
	{
		api.GET("/me", h.GetProfile)
		api.PATCH("/me", h.UpdateProfile)
		api.GET("/me/bmi", h.GetBMI)
		api.PUT("/me/image", h.PutProfileImage)
		api.GET("/me/image", h.GetProfileImage)

		api.POST("/meals", h.UploadMeal)
		api.GET("/logs/today", h.Today)
		api.GET("/logs/weekly", h.Weekly)
		api.GET("/logs/day/:date", h.Day)
		api.GET("/recommendation", h.Recommendation)
	}
	return r
}
