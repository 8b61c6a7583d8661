package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"nutrilens/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const handleKey = "user_handle"

// AuthMiddleware requires a valid bearer token and stores the user handle in
// the context.
func AuthMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		handle, err := tokens.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(handleKey, handle)
		c.Next()
	}
}

// RequestID propagates X-Request-ID, generating one when the client sent none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs request details.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		clientIP := c.ClientIP()

		c.Next()

		log.Printf("[%s] %s %s %s | %d | %v | %s",
			c.GetString("request_id"),
			method,
			path,
			clientIP,
			c.Writer.Status(),
			time.Since(startTime),
			c.Errors.String(),
		)
	}
}

func currentHandle(c *gin.Context) string {
	return c.GetString(handleKey)
}
