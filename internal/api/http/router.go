package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Transfers      *handlers.TransfersHandler
	Notifications  *handlers.NotificationsHandler
	Messages       *handlers.MessagesHandler
	Directory      *handlers.DirectoryHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP and websocket routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/register", cfg.Auth.Register)
	app.Post("/auth/login", cfg.Auth.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle)

	tickets := authed.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Put("/:id/status", cfg.Tickets.SetStatus)
	tickets.Put("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AssignAgent)
	tickets.Delete("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.UnassignAgent)
	tickets.Post("/:id/request-resolution", auth.RequireRole(domain.RoleAgent), cfg.Tickets.RequestResolution)
	tickets.Post("/:id/resolve", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Resolve)
	tickets.Post("/:id/close", auth.RequireRole(domain.RoleAgent, domain.RoleAdmin), cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Reopen)
	tickets.Post("/:id/request-reopen", cfg.Tickets.RequestReopen)
	tickets.Post("/:id/accept-reopen", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AcceptReopen)

	tickets.Post("/:id/notes", auth.RequireRole(domain.RoleAgent, domain.RoleAdmin), cfg.Tickets.AddNote)
	tickets.Get("/:id/notes", auth.RequireRole(domain.RoleAgent, domain.RoleAdmin), cfg.Tickets.ListNotes)

	tickets.Post("/:id/transfers", cfg.Transfers.RequestTransfer)
	tickets.Post("/:id/messages", cfg.Messages.PostMessage)
	tickets.Get("/:id/messages", cfg.Messages.ListMessages)
	tickets.Get("/:id/online", cfg.WS.OnlineUsers)
	tickets.Get("/:id/call/status", cfg.WS.CallStatus)

	transfers := authed.Group("/transfers", auth.RequireRole(domain.RoleAgent, domain.RoleAdmin))
	transfers.Get("", cfg.Transfers.ListTransfers)
	transfers.Post("/:id/approve", auth.RequireRole(domain.RoleAdmin), cfg.Transfers.ApproveTransfer)
	transfers.Post("/:id/reject", auth.RequireRole(domain.RoleAdmin), cfg.Transfers.RejectTransfer)

	notifications := authed.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/stats", cfg.Notifications.Stats)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Put("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Put("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	authed.Get("/categories", cfg.Directory.ListCategories)
	authed.Put("/agents/:id/categories/:categoryId", auth.RequireRole(domain.RoleAdmin), cfg.Directory.AssignAgentCategory)

	ws := app.Group("/ws", cfg.WS.UpgradeGate, cfg.AuthMiddleware.Handle)
	ws.Get("/feed", cfg.WS.GlobalFeed())
	ws.Get("/tickets/:id", cfg.WS.ChannelGate, cfg.WS.TicketRoom())
	ws.Get("/tickets/:id/call", cfg.WS.CallGate, cfg.WS.CallChannel())
}
