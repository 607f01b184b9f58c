package router

import (
	"basegraph.app/triage/internal/http/handler/webhook"
	"github.com/gin-gonic/gin"
)

func WebhookRouter(router *gin.RouterGroup, githubHandler *webhook.GitHubWebhookHandler) {
	router.POST("/github", githubHandler.HandleEvent)
}
