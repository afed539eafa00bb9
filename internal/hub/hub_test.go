package hub

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   []map[string]interface{}
	failSend bool
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return fmt.Errorf("connection gone")
	}
	frame, _ := v.(map[string]interface{})
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		t, _ := f["type"].(string)
		types = append(types, t)
	}
	return types
}

func (c *fakeConn) lastFrame() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func identity(userID string, role domain.UserRole) domain.Identity {
	return domain.Identity{UserID: userID, Name: "name-" + userID, Role: role}
}

func newTestHub() *Hub {
	return New(zap.NewNop())
}

func TestJoinRoomReplacesStaleSession(t *testing.T) {
	h := newTestHub()
	first := &fakeConn{}
	second := &fakeConn{}
	user := identity("user-1", domain.RoleUser)

	h.JoinRoom("ticket-1", first, user)
	h.JoinRoom("ticket-1", second, user)

	assert.Contains(t, first.frameTypes(), "session_replaced")
	assert.True(t, first.closed)
	assert.False(t, second.closed)
	assert.Equal(t, []string{"user-1"}, h.RoomMembers("ticket-1"))
}

func TestRoomJoinAndLeaveAnnouncements(t *testing.T) {
	h := newTestHub()
	userConn := &fakeConn{}
	agentConn := &fakeConn{}

	h.JoinRoom("ticket-1", userConn, identity("user-1", domain.RoleUser))
	h.JoinRoom("ticket-1", agentConn, identity("agent-1", domain.RoleAgent))

	// the joiner does not hear its own join.
	assert.NotContains(t, agentConn.frameTypes(), "user_joined")
	require.Contains(t, userConn.frameTypes(), "user_joined")
	joined := userConn.lastFrame()
	assert.Equal(t, "agent-1", joined["userId"])
	assert.Equal(t, "name-agent-1", joined["userName"])

	h.LeaveRoom("ticket-1", agentConn)
	assert.Contains(t, userConn.frameTypes(), "user_left")
	assert.False(t, h.IsUserInRoom("ticket-1", "agent-1"))
	assert.True(t, h.IsUserInRoom("ticket-1", "user-1"))
}

func TestLeaveRoomIgnoresReplacedConnection(t *testing.T) {
	h := newTestHub()
	first := &fakeConn{}
	second := &fakeConn{}
	observer := &fakeConn{}
	user := identity("user-1", domain.RoleUser)

	h.JoinRoom("ticket-1", observer, identity("agent-1", domain.RoleAgent))
	h.JoinRoom("ticket-1", first, user)
	h.JoinRoom("ticket-1", second, user)

	// the replaced session's read loop still runs its deferred leave; it must
	// not evict the replacement.
	h.LeaveRoom("ticket-1", first)

	assert.True(t, h.IsUserInRoom("ticket-1", "user-1"))
	assert.NotContains(t, observer.frameTypes(), "user_left")

	h.LeaveRoom("ticket-1", second)
	assert.False(t, h.IsUserInRoom("ticket-1", "user-1"))
	assert.Contains(t, observer.frameTypes(), "user_left")
}

func TestBroadcastPrunesDeadConnections(t *testing.T) {
	h := newTestHub()
	live := &fakeConn{}
	dead := &fakeConn{failSend: true}

	h.JoinRoom("ticket-1", live, identity("user-1", domain.RoleUser))
	h.JoinRoom("ticket-1", dead, identity("agent-1", domain.RoleAgent))

	h.BroadcastToRoom("ticket-1", map[string]interface{}{"type": "message"}, "")

	assert.True(t, dead.closed)
	assert.Equal(t, []string{"user-1"}, h.RoomMembers("ticket-1"))
	assert.Contains(t, live.frameTypes(), "message")
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := newTestHub()
	sender := &fakeConn{}
	receiver := &fakeConn{}

	h.JoinRoom("ticket-1", sender, identity("user-1", domain.RoleUser))
	h.JoinRoom("ticket-1", receiver, identity("agent-1", domain.RoleAgent))

	h.BroadcastToRoom("ticket-1", map[string]interface{}{"type": "message"}, "user-1")

	assert.NotContains(t, sender.frameTypes(), "message")
	assert.Contains(t, receiver.frameTypes(), "message")
}

func TestGlobalFeedBroadcastAndPrune(t *testing.T) {
	h := newTestHub()
	ok := &fakeConn{}
	broken := &fakeConn{failSend: true}

	h.ConnectGlobal(ok, identity("user-1", domain.RoleUser))
	h.ConnectGlobal(broken, identity("agent-1", domain.RoleAgent))
	assert.Equal(t, 2, h.GlobalCount())

	h.BroadcastGlobal(map[string]interface{}{"type": "message"})
	assert.Equal(t, 1, h.GlobalCount())
	assert.True(t, broken.closed)

	h.DisconnectGlobal(ok)
	assert.Equal(t, 0, h.GlobalCount())
}

func TestCallPairPeerNotifications(t *testing.T) {
	h := newTestHub()
	userConn := &fakeConn{}
	agentConn := &fakeConn{}

	h.JoinCall("ticket-1", domain.RoleUser, userConn, identity("user-1", domain.RoleUser))
	h.JoinCall("ticket-1", domain.RoleAgent, agentConn, identity("agent-1", domain.RoleAgent))

	require.Contains(t, userConn.frameTypes(), "peer-connected")
	connected := userConn.lastFrame()
	assert.Equal(t, "agent-1", connected["userId"])
	assert.Equal(t, "name-agent-1", connected["userName"])
	assert.Equal(t, "agent", connected["role"])

	status := h.CallStatus("ticket-1")
	assert.True(t, status[domain.RoleUser])
	assert.True(t, status[domain.RoleAgent])

	h.LeaveCall("ticket-1", domain.RoleAgent, agentConn)
	assert.Contains(t, userConn.frameTypes(), "peer-disconnected")
	assert.False(t, h.CallStatus("ticket-1")[domain.RoleAgent])
}

func TestLeaveCallIgnoresReplacedConnection(t *testing.T) {
	h := newTestHub()
	first := &fakeConn{}
	second := &fakeConn{}
	agentConn := &fakeConn{}
	caller := identity("user-1", domain.RoleUser)

	h.JoinCall("ticket-1", domain.RoleAgent, agentConn, identity("agent-1", domain.RoleAgent))
	h.JoinCall("ticket-1", domain.RoleUser, first, caller)
	h.JoinCall("ticket-1", domain.RoleUser, second, caller)

	h.LeaveCall("ticket-1", domain.RoleUser, first)

	assert.True(t, h.CallStatus("ticket-1")[domain.RoleUser])
	assert.NotContains(t, agentConn.frameTypes(), "peer-disconnected")

	h.LeaveCall("ticket-1", domain.RoleUser, second)
	assert.False(t, h.CallStatus("ticket-1")[domain.RoleUser])
	assert.Contains(t, agentConn.frameTypes(), "peer-disconnected")
}

func TestRelayOfferStampsCallerMetadata(t *testing.T) {
	h := newTestHub()
	userConn := &fakeConn{}
	agentConn := &fakeConn{}
	caller := identity("user-1", domain.RoleUser)

	h.JoinCall("ticket-1", domain.RoleUser, userConn, caller)
	h.JoinCall("ticket-1", domain.RoleAgent, agentConn, identity("agent-1", domain.RoleAgent))

	h.RelaySignal("ticket-1", caller, domain.RoleUser, map[string]interface{}{
		"type": "offer",
		"sdp":  "v=0",
	})

	require.Contains(t, agentConn.frameTypes(), "offer")
	offer := agentConn.lastFrame()
	assert.Equal(t, "v=0", offer["sdp"])
	assert.Equal(t, "user-1", offer["senderId"])
	assert.Equal(t, "user-1", offer["callerId"])
	assert.Equal(t, "name-user-1", offer["callerName"])
	assert.Equal(t, "user", offer["callerRole"])
	assert.Equal(t, "ticket-1", offer["ticketId"])
	assert.Equal(t, "audio", offer["callType"])
}

func TestRelayOfferKeepsExplicitCallType(t *testing.T) {
	h := newTestHub()
	userConn := &fakeConn{}
	agentConn := &fakeConn{}
	caller := identity("user-1", domain.RoleUser)

	h.JoinCall("ticket-1", domain.RoleUser, userConn, caller)
	h.JoinCall("ticket-1", domain.RoleAgent, agentConn, identity("agent-1", domain.RoleAgent))

	h.RelaySignal("ticket-1", caller, domain.RoleUser, map[string]interface{}{
		"type":     "offer",
		"callType": "video",
	})

	assert.Equal(t, "video", agentConn.lastFrame()["callType"])
}

func TestRelayWithoutPeer(t *testing.T) {
	h := newTestHub()
	userConn := &fakeConn{}
	caller := identity("user-1", domain.RoleUser)

	h.JoinCall("ticket-1", domain.RoleUser, userConn, caller)

	// signaling frames get an explicit error back.
	h.RelaySignal("ticket-1", caller, domain.RoleUser, map[string]interface{}{"type": "ice-candidate"})
	require.Contains(t, userConn.frameTypes(), "error")
	assert.Equal(t, "Peer not connected", userConn.lastFrame()["message"])

	// anything else is silently dropped.
	before := len(userConn.frameTypes())
	h.RelaySignal("ticket-1", caller, domain.RoleUser, map[string]interface{}{"type": "ping"})
	assert.Len(t, userConn.frameTypes(), before)
}

func TestRelayForwardsEveryFrameTypeToPeer(t *testing.T) {
	h := newTestHub()
	userConn := &fakeConn{}
	agentConn := &fakeConn{}
	caller := identity("user-1", domain.RoleUser)

	h.JoinCall("ticket-1", domain.RoleUser, userConn, caller)
	h.JoinCall("ticket-1", domain.RoleAgent, agentConn, identity("agent-1", domain.RoleAgent))

	// hang-up style frames are not in the signaling set but still reach the
	// peer with the sender attached.
	h.RelaySignal("ticket-1", caller, domain.RoleUser, map[string]interface{}{"type": "call-ended"})

	require.Contains(t, agentConn.frameTypes(), "call-ended")
	ended := agentConn.lastFrame()
	assert.Equal(t, "user-1", ended["senderId"])
	assert.NotContains(t, ended, "callerId")
}

// overlapConn records whether two WriteJSON calls ever ran at the same time.
type overlapConn struct {
	inWrite  int32
	overlaps int32
	writes   int32
}

func (c *overlapConn) WriteJSON(interface{}) error {
	if atomic.AddInt32(&c.inWrite, 1) > 1 {
		atomic.AddInt32(&c.overlaps, 1)
	}
	runtime.Gosched()
	atomic.AddInt32(&c.inWrite, -1)
	atomic.AddInt32(&c.writes, 1)
	return nil
}

func (c *overlapConn) Close() error { return nil }

func TestConcurrentSendsAreSerializedPerConnection(t *testing.T) {
	h := newTestHub()
	raw := &overlapConn{}
	receiver := Wrap(raw)

	h.JoinRoom("ticket-1", receiver, identity("user-1", domain.RoleUser))
	h.JoinRoom("ticket-1", &fakeConn{}, identity("agent-1", domain.RoleAgent))

	const goroutines = 8
	const perGoroutine = 16
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if g%2 == 0 {
					h.BroadcastToRoom("ticket-1", map[string]interface{}{"type": "message"}, "agent-1")
				} else {
					// the handler writes its own frames on the same socket.
					_ = receiver.WriteJSON(map[string]interface{}{"type": "connected"})
				}
			}
		}(g)
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&raw.overlaps))
	assert.Equal(t, int32(goroutines*perGoroutine), atomic.LoadInt32(&raw.writes))
}

func TestJoinCallReplacesStaleRoleConnection(t *testing.T) {
	h := newTestHub()
	first := &fakeConn{}
	second := &fakeConn{}
	caller := identity("user-1", domain.RoleUser)

	h.JoinCall("ticket-1", domain.RoleUser, first, caller)
	h.JoinCall("ticket-1", domain.RoleUser, second, caller)

	assert.True(t, first.closed)
	assert.False(t, second.closed)
	assert.True(t, h.CallStatus("ticket-1")[domain.RoleUser])
}
