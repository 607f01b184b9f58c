package router

import (
	"basegraph.app/triage/internal/http/handler/webhook"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, githubHandler *webhook.GitHubWebhookHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	WebhookRouter(router.Group("/webhooks"), githubHandler)
}
