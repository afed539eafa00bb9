package hub

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Call-signaling pairs: at most one connection per role per ticket, roles
// being the requester and the agent. Signaling payloads are relayed verbatim
// between the two with sender identity attached.

var relayedSignals = map[string]struct{}{
	"offer":         {},
	"answer":        {},
	"ice-candidate": {},
}

// JoinCall registers a connection for one role of a ticket's call pair,
// replacing any previous connection for that role. The peer, if present, is
// told the caller connected.
func (h *Hub) JoinCall(ticketID string, role domain.UserRole, conn Conn, identity domain.Identity) {
	member := &Member{
		Conn:     conn,
		UserID:   identity.UserID,
		Name:     identity.Name,
		Role:     role,
		JoinedAt: time.Now(),
	}

	h.mu.Lock()
	pair, ok := h.calls[ticketID]
	if !ok {
		pair = make(map[domain.UserRole]*Member, 2)
		h.calls[ticketID] = pair
	}
	stale := pair[role]
	pair[role] = member
	peer := pair[otherRole(role)]
	h.mu.Unlock()

	if stale != nil {
		_ = stale.Conn.Close()
	}
	if peer != nil {
		_ = peer.Conn.WriteJSON(map[string]interface{}{
			"type":     "peer-connected",
			"userId":   identity.UserID,
			"userName": identity.Name,
			"role":     string(role),
		})
	}
}

// LeaveCall deregisters one role of a call pair and informs the peer. Only the
// connection currently holding the role slot may vacate it; a replaced session
// leaving late is a no-op.
func (h *Hub) LeaveCall(ticketID string, role domain.UserRole, conn Conn) {
	h.mu.Lock()
	pair, ok := h.calls[ticketID]
	if !ok {
		h.mu.Unlock()
		return
	}
	current := pair[role]
	if current == nil || current.Conn != conn {
		h.mu.Unlock()
		return
	}
	delete(pair, role)
	if len(pair) == 0 {
		delete(h.calls, ticketID)
	}
	peer := pair[otherRole(role)]
	h.mu.Unlock()

	if peer != nil {
		_ = peer.Conn.WriteJSON(map[string]interface{}{"type": "peer-disconnected"})
	}
}

// RelaySignal forwards a frame from one role to the other with the sender
// attached. Any frame type is relayed, so hang-up and reject frames pass
// through untouched; offers additionally get stamped with caller metadata so
// the callee can render the incoming call. When the peer is absent, signaling
// frames get an explicit error reply and anything else is dropped.
func (h *Hub) RelaySignal(ticketID string, from domain.Identity, fromRole domain.UserRole, frame map[string]interface{}) {
	frameType, _ := frame["type"].(string)

	h.mu.Lock()
	pair := h.calls[ticketID]
	var sender, peer *Member
	if pair != nil {
		sender = pair[fromRole]
		peer = pair[otherRole(fromRole)]
	}
	h.mu.Unlock()

	if peer == nil {
		if _, signaling := relayedSignals[frameType]; signaling && sender != nil {
			_ = sender.Conn.WriteJSON(map[string]interface{}{
				"type":    "error",
				"message": "Peer not connected",
			})
		}
		return
	}

	out := make(map[string]interface{}, len(frame)+5)
	for k, v := range frame {
		out[k] = v
	}
	out["senderId"] = from.UserID
	if frameType == "offer" {
		out["callerId"] = from.UserID
		out["callerName"] = from.Name
		out["callerRole"] = string(fromRole)
		out["ticketId"] = ticketID
		if _, ok := out["callType"]; !ok {
			out["callType"] = "audio"
		}
	}
	if err := peer.Conn.WriteJSON(out); err != nil {
		h.logger.Debug("signal relay failed",
			zap.String("ticket_id", ticketID),
			zap.String("frame_type", frameType),
			zap.Error(err))
	}
}

// CallStatus reports which roles currently hold a connection for a ticket.
func (h *Hub) CallStatus(ticketID string) map[domain.UserRole]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := map[domain.UserRole]bool{
		domain.RoleUser:  false,
		domain.RoleAgent: false,
	}
	for role, m := range h.calls[ticketID] {
		if m != nil {
			status[role] = true
		}
	}
	return status
}

func otherRole(role domain.UserRole) domain.UserRole {
	if role == domain.RoleAgent {
		return domain.RoleUser
	}
	return domain.RoleAgent
}
