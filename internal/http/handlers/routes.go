package handlers

import (
	"fmt"

	"leadcrm/internal/app"
	"leadcrm/internal/http/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) error {
	authHandler := NewAuthHandler(services.AuthService, services.SignupService)
	leadHandler := NewLeadHandler(services.LeadService)
	taskHandler := NewTaskHandler(services.TaskService)
	userHandler := NewUserHandler(services.UserService)
	channelHandler := NewChannelHandler(services.ChannelService)
	inboxHandler := NewInboxHandler(services.InboxService)
	dashboardHandler := NewDashboardHandler(services.DashboardService)
	webhookHandler := NewWebhookHandler(services.Pipeline)
	wsHandler := NewWebSocketHandler(services.AuthService, services.Hub)

	// Public auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/signup", authHandler.Signup)

	// Provider webhooks, rate limited per client IP
	rateLimit, err := middleware.RateLimit(services.Config.WebhookRateLimit)
	if err != nil {
		return fmt.Errorf("webhook rate limit %q: %w", services.Config.WebhookRateLimit, err)
	}
	webhooks := api.Group("/webhooks", rateLimit)
	webhooks.GET("/meta/leads", webhookHandler.MetaPing)
	webhooks.POST("/meta/leads", webhookHandler.MetaLead)
	webhooks.GET("/whatsapp", webhookHandler.VerifyWhatsApp)
	webhooks.POST("/whatsapp", webhookHandler.WhatsAppMessage)

	// WebSocket endpoint (authenticates via the token query parameter)
	api.GET("/ws", wsHandler.HandleWebSocket)

	// Everything below requires a session. The middleware is attached per
	// route so unknown paths still answer 404.
	requireSession := middleware.SessionAuth(services.AuthService)

	api.GET("/auth/session", authHandler.Session, requireSession)

	api.GET("/leads", leadHandler.List, requireSession)
	api.POST("/leads", leadHandler.Create, requireSession)
	api.PATCH("/leads/:id", leadHandler.Update, requireSession)
	api.DELETE("/leads/:id", leadHandler.Delete, requireSession)
	api.GET("/pipeline-stages", leadHandler.Stages, requireSession)

	api.GET("/tasks", taskHandler.List, requireSession)
	api.POST("/tasks", taskHandler.Create, requireSession)
	api.PATCH("/tasks/:id", taskHandler.Update, requireSession)

	api.GET("/users", userHandler.List, requireSession)
	api.POST("/users", userHandler.Create, requireSession)
	api.PATCH("/users/:id", userHandler.Update, requireSession)

	api.GET("/lead-sources", channelHandler.ListLeadSources, requireSession)
	api.POST("/lead-sources", channelHandler.CreateLeadSource, requireSession)
	api.GET("/whatsapp-workspaces", channelHandler.ListWorkspaces, requireSession)
	api.POST("/whatsapp-workspaces", channelHandler.CreateWorkspace, requireSession)
	api.DELETE("/whatsapp-workspaces/:id", channelHandler.DeleteWorkspace, requireSession)

	api.GET("/inbox/conversations", inboxHandler.Conversations, requireSession)
	api.GET("/inbox/leads/:id/messages", inboxHandler.Messages, requireSession)
	api.POST("/inbox/leads/:id/read", inboxHandler.MarkRead, requireSession)
	api.PATCH("/messages/:id", inboxHandler.UpdateMessage, requireSession)

	api.GET("/dashboard/summary", dashboardHandler.Summary, requireSession)

	return nil
}
