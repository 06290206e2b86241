package http

import (
	"github.com/gin-gonic/gin"
	"github.com/snipvault/snipvault/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(auth *service.AuthService, snippets *service.SnippetService) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(auth, snippets)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register/start", handlers.RegisterStart)
		authGroup.POST("/register/finish", handlers.RegisterFinish)
		authGroup.POST("/login/start", handlers.LoginStart)
		authGroup.POST("/login/finish", handlers.LoginFinish)
		authGroup.POST("/renew", handlers.Renew)
		authGroup.POST("/logout", handlers.Logout)
	}

	router.GET("/snippets", handlers.ListSnippets)

	protected := router.Group("/snippets")
	protected.Use(AuthMiddleware(auth))
	{
		protected.POST("", handlers.CreateSnippet)
		protected.PATCH("/:id", handlers.UpdateSnippet)
	}

	return router
}
