package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaniStaretz-ai/FinalProject/internal/api/admin"
	"github.com/ShaniStaretz-ai/FinalProject/internal/api/auth"
	"github.com/ShaniStaretz-ai/FinalProject/internal/api/models"
)

// SetupRouter configures all routes
func SetupRouter(r *gin.Engine, authH *auth.Handler, modelsH *models.Handler, adminH *admin.Handler) {
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())

	// Health check
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Trainer API is running",
			"version": "1.0.0",
		})
	})

	// User routes (no authentication required)
	userRoutes := r.Group("/user")
	{
		userRoutes.POST("/create", authH.Register)
		userRoutes.POST("/login", authH.Login)
		userRoutes.GET("/tokens", auth.AuthMiddleware(), authH.Tokens)
	}

	// Trainer kind schemas are public
	r.GET("/models", modelsH.ListKinds)

	// Model lifecycle routes require authentication
	authed := r.Group("/")
	authed.Use(auth.AuthMiddleware())
	{
		authed.POST("/create", modelsH.Create)
		authed.GET("/trained", modelsH.Trained)
		authed.GET("/trained/:model_name", modelsH.TrainedDetail)
		authed.POST("/predict/:model_name", modelsH.Predict)
		authed.DELETE("/delete/:model_name", modelsH.Delete)

		// Admin routes
		adminGroup := authed.Group("/admin")
		adminGroup.Use(auth.AdminMiddleware())
		{
			adminGroup.GET("/users", adminH.GetUsers)
			adminGroup.POST("/users/:user_id/tokens", adminH.AddTokens)
			adminGroup.POST("/users/:user_id/reset_password", adminH.ResetPassword)
			adminGroup.DELETE("/users/:user_id", adminH.DeleteUser)
		}
	}
}

// CORSMiddleware provides CORS support
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware tags every request with an id for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}
