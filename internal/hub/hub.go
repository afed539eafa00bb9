package hub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Conn is the transport handle the hub writes to. The websocket edge
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Wrap serializes writes to a connection. The underlying websocket permits
// only one concurrent writer, while room broadcasts, call relays, and the
// handler's own frames can all send from different goroutines.
func Wrap(conn Conn) Conn {
	return &lockedConn{conn: conn}
}

type lockedConn struct {
	mu   sync.Mutex
	conn Conn
}

func (c *lockedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *lockedConn) Close() error {
	return c.conn.Close()
}

// Member is one live connection with its owner identity.
type Member struct {
	Conn     Conn
	UserID   string
	Name     string
	Role     domain.UserRole
	JoinedAt time.Time
}

// Hub multiplexes three independent connection tables: per-ticket chat
// rooms, a global feed, and per-ticket call-signaling pairs. All tables are
// process-local; a single mutex guards them since every operation is short
// bookkeeping plus non-blocking writes.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string][]*Member
	global []*Member
	calls  map[string]map[domain.UserRole]*Member
	logger *zap.Logger
}

// New constructs an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string][]*Member),
		calls:  make(map[string]map[domain.UserRole]*Member),
		logger: logger,
	}
}

// JoinRoom registers a connection in a ticket room. A user holds at most one
// connection per room: a stale session is told it was replaced and closed
// before the new one is admitted. The rest of the room learns of the join.
func (h *Hub) JoinRoom(ticketID string, conn Conn, identity domain.Identity) {
	h.mu.Lock()
	members := h.rooms[ticketID]
	var stale *Member
	for i, m := range members {
		if m.UserID == identity.UserID {
			stale = m
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	member := &Member{
		Conn:     conn,
		UserID:   identity.UserID,
		Name:     identity.Name,
		Role:     identity.Role,
		JoinedAt: time.Now(),
	}
	h.rooms[ticketID] = append(members, member)
	h.mu.Unlock()

	if stale != nil {
		_ = stale.Conn.WriteJSON(map[string]interface{}{"type": "session_replaced"})
		_ = stale.Conn.Close()
		// the user never left the room, so the others need no announcement
		return
	}
	h.BroadcastToRoom(ticketID, map[string]interface{}{
		"type":     "user_joined",
		"userId":   identity.UserID,
		"userName": identity.Name,
	}, identity.UserID)
}

// LeaveRoom removes one connection from a ticket room and tells the remaining
// members. Removal matches on the connection, not the user: a session that was
// replaced is no longer in the table, so its late departure must not evict the
// replacement. Empty rooms are dropped.
func (h *Hub) LeaveRoom(ticketID string, conn Conn) {
	h.mu.Lock()
	members, ok := h.rooms[ticketID]
	if !ok {
		h.mu.Unlock()
		return
	}
	var removed *Member
	for i, m := range members {
		if m.Conn == conn {
			removed = m
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(h.rooms, ticketID)
	} else {
		h.rooms[ticketID] = members
	}
	h.mu.Unlock()

	if removed != nil {
		h.BroadcastToRoom(ticketID, map[string]interface{}{
			"type":   "user_left",
			"userId": removed.UserID,
		}, removed.UserID)
	}
}

// BroadcastToRoom delivers a message to every connection in a room except
// excludeUserID, in join order. A connection whose send fails is pruned;
// failures never reach the caller.
func (h *Hub) BroadcastToRoom(ticketID string, message interface{}, excludeUserID string) {
	h.mu.Lock()
	members := append([]*Member(nil), h.rooms[ticketID]...)
	h.mu.Unlock()

	var dead []*Member
	for _, m := range members {
		if m.UserID == excludeUserID {
			continue
		}
		if err := m.Conn.WriteJSON(message); err != nil {
			h.logger.Debug("room send failed, pruning connection",
				zap.String("ticket_id", ticketID),
				zap.String("user_id", m.UserID),
				zap.Error(err))
			dead = append(dead, m)
		}
	}
	if len(dead) == 0 {
		return
	}

	h.mu.Lock()
	members = h.rooms[ticketID]
	for _, d := range dead {
		for i, m := range members {
			if m == d {
				members = append(members[:i], members[i+1:]...)
				break
			}
		}
		_ = d.Conn.Close()
	}
	if len(members) == 0 {
		delete(h.rooms, ticketID)
	} else {
		h.rooms[ticketID] = members
	}
	h.mu.Unlock()
}

// IsUserInRoom reports room membership.
func (h *Hub) IsUserInRoom(ticketID, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.rooms[ticketID] {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// RoomMembers lists ids of users currently in a room, in join order.
func (h *Hub) RoomMembers(ticketID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[ticketID]
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// ConnectGlobal adds a connection to the global feed.
func (h *Hub) ConnectGlobal(conn Conn, identity domain.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global = append(h.global, &Member{
		Conn:     conn,
		UserID:   identity.UserID,
		Name:     identity.Name,
		Role:     identity.Role,
		JoinedAt: time.Now(),
	})
}

// DisconnectGlobal removes a connection from the global feed.
func (h *Hub) DisconnectGlobal(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, m := range h.global {
		if m.Conn == conn {
			h.global = append(h.global[:i], h.global[i+1:]...)
			return
		}
	}
}

// BroadcastGlobal best-effort-delivers to every global feed connection,
// pruning dead ones.
func (h *Hub) BroadcastGlobal(message interface{}) {
	h.mu.Lock()
	members := append([]*Member(nil), h.global...)
	h.mu.Unlock()

	var dead []*Member
	for _, m := range members {
		if err := m.Conn.WriteJSON(message); err != nil {
			h.logger.Debug("global send failed, pruning connection",
				zap.String("user_id", m.UserID),
				zap.Error(err))
			dead = append(dead, m)
		}
	}
	if len(dead) == 0 {
		return
	}

	h.mu.Lock()
	for _, d := range dead {
		for i, m := range h.global {
			if m == d {
				h.global = append(h.global[:i], h.global[i+1:]...)
				break
			}
		}
		_ = d.Conn.Close()
	}
	h.mu.Unlock()
}

// GlobalCount reports the global feed size.
func (h *Hub) GlobalCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.global)
}
