package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/hub"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const channelRoleKey = "channel_role"

// WSHandler owns the three live surfaces: ticket chat rooms, the global
// feed, and call-signaling pairs. Channel authorization happens before the
// upgrade; after it the connection belongs to the hub.
type WSHandler struct {
	tickets     *service.TicketService
	messages    *service.MessageService
	hub         *hub.Hub
	metrics     *observability.Metrics
	idleTimeout time.Duration
	logger      *zap.Logger
}

// NewWSHandler constructs handler. idleTimeout of zero disables the read
// deadline.
func NewWSHandler(tickets *service.TicketService, messages *service.MessageService, h *hub.Hub, metrics *observability.Metrics, idleTimeout time.Duration, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		tickets:     tickets,
		messages:    messages,
		hub:         h,
		metrics:     metrics,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// UpgradeGate rejects plain HTTP requests on websocket routes.
func (h *WSHandler) UpgradeGate(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ChannelGate authorizes ticket-scoped channels before the upgrade and
// records which side of the channel the caller is.
func (h *WSHandler) ChannelGate(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	role, err := h.tickets.AuthorizeChannel(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	c.Locals(channelRoleKey, role)
	return c.Next()
}

// CallGate authorizes the call channel. Unlike the chat room, a call needs an
// assigned agent on the ticket.
func (h *WSHandler) CallGate(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	role, err := h.tickets.AuthorizeCallChannel(c.Context(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	c.Locals(channelRoleKey, role)
	return c.Next()
}

// TicketRoom returns the upgraded handler for GET /ws/tickets/:id.
func (h *WSHandler) TicketRoom() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		identity, ok := conn.Locals(auth.IdentityContextKey).(domain.Identity)
		if !ok {
			_ = conn.Close()
			return
		}
		ticketID := conn.Params("id")

		h.metrics.SocketOpened("room")
		defer h.metrics.SocketClosed("room")

		// all writes funnel through one lock; the hub broadcasts and this
		// loop's own frames would otherwise race on the socket.
		locked := hub.Wrap(conn)
		h.hub.JoinRoom(ticketID, locked, identity)
		defer h.hub.LeaveRoom(ticketID, locked)

		_ = locked.WriteJSON(map[string]interface{}{"type": "connected", "ticketId": ticketID})

		for {
			h.refreshDeadline(conn)
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal(raw, &frame); err != nil || frame.Content == "" {
				continue
			}
			if _, err := h.messages.PostMessage(context.Background(), identity, ticketID, frame.Content); err != nil {
				h.logger.Debug("chat message rejected",
					zap.String("ticket_id", ticketID),
					zap.String("user_id", identity.UserID),
					zap.Error(err))
				_ = locked.WriteJSON(map[string]interface{}{
					"type":    "error",
					"message": apperrors.ToDomainError(err).Message,
				})
			}
		}
	})
}

// GlobalFeed returns the upgraded handler for GET /ws/feed. Open to any
// authenticated caller; consumers filter by ticket id client-side.
func (h *WSHandler) GlobalFeed() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		identity, ok := conn.Locals(auth.IdentityContextKey).(domain.Identity)
		if !ok {
			_ = conn.Close()
			return
		}

		h.metrics.SocketOpened("global")
		defer h.metrics.SocketClosed("global")

		locked := hub.Wrap(conn)
		h.hub.ConnectGlobal(locked, identity)
		defer h.hub.DisconnectGlobal(locked)

		_ = locked.WriteJSON(map[string]interface{}{"type": "connected"})

		// the feed accepts sends too; each frame carries its target ticket
		// and goes through the same per-ticket authorization as the room.
		for {
			h.refreshDeadline(conn)
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				TicketID string `json:"ticketId"`
				Content  string `json:"content"`
			}
			if err := json.Unmarshal(raw, &frame); err != nil || frame.TicketID == "" || frame.Content == "" {
				continue
			}
			if _, err := h.messages.PostMessage(context.Background(), identity, frame.TicketID, frame.Content); err != nil {
				_ = locked.WriteJSON(map[string]interface{}{
					"type":    "error",
					"message": apperrors.ToDomainError(err).Message,
				})
			}
		}
	})
}

// CallChannel returns the upgraded handler for GET /ws/tickets/:id/call.
func (h *WSHandler) CallChannel() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		identity, ok := conn.Locals(auth.IdentityContextKey).(domain.Identity)
		if !ok {
			_ = conn.Close()
			return
		}
		role, ok := conn.Locals(channelRoleKey).(domain.UserRole)
		if !ok {
			_ = conn.Close()
			return
		}
		ticketID := conn.Params("id")

		h.metrics.SocketOpened("call")
		defer h.metrics.SocketClosed("call")

		locked := hub.Wrap(conn)
		h.hub.JoinCall(ticketID, role, locked, identity)
		defer h.hub.LeaveCall(ticketID, role, locked)

		peerRole := domain.RoleAgent
		if role == domain.RoleAgent {
			peerRole = domain.RoleUser
		}
		_ = locked.WriteJSON(map[string]interface{}{
			"type":       "connected",
			"ticketId":   ticketID,
			"peerOnline": h.hub.CallStatus(ticketID)[peerRole],
		})

		for {
			h.refreshDeadline(conn)
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]interface{}
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			h.hub.RelaySignal(ticketID, identity, role, frame)
		}
	})
}

// OnlineUsers GET /tickets/:id/online lists who currently sits in the
// ticket's chat room.
func (h *WSHandler) OnlineUsers(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if _, err := h.tickets.AuthorizeChannel(c.Context(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"online_users": h.hub.RoomMembers(c.Params("id")),
	}})
}

// CallStatus GET /tickets/:id/call/status reports which sides of the call
// pair are connected.
func (h *WSHandler) CallStatus(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if _, err := h.tickets.AuthorizeChannel(c.Context(), identity, c.Params("id")); err != nil {
		return err
	}
	status := h.hub.CallStatus(c.Params("id"))
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user_connected":  status[domain.RoleUser],
		"agent_connected": status[domain.RoleAgent],
	}})
}

func (h *WSHandler) refreshDeadline(conn *websocket.Conn) {
	if h.idleTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
	}
}
