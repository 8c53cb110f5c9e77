package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/sneakyspeak/internal/handlers"
	"github.com/thereayou/sneakyspeak/internal/middleware"
	"github.com/thereayou/sneakyspeak/pkg/auth"
)

func APIEndpoints(r *gin.Engine, authH *handlers.AuthHandler, paymentH *handlers.PaymentHandler,
	uploadH *handlers.UploadHandler, wsH *handlers.WebSocketHandler,
	jwtMgr *auth.JWTManager, rdb *redis.Client) {

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/verify", authH.Verify)
		authGroup.POST("/logout", authH.Logout)
		authGroup.POST("/refresh", authH.Refresh)

		authGroup.GET("/profile", middleware.AuthMiddleware(jwtMgr, rdb), authH.Profile)
		authGroup.PUT("/username", middleware.AuthMiddleware(jwtMgr, rdb), authH.UpdateUsername)
	}

	// API endpoints
	api := r.Group("/api", middleware.AuthMiddleware(jwtMgr, rdb))
	{
		api.POST("/payment/verify/:reference", paymentH.VerifyPayment)
		api.POST("/upload", uploadH.UploadMeme)
	}

	// WebSocket endpoint
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)
}
