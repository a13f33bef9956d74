package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var (
	ErrConnClosed     = errors.New("gateway connection closed")
	ErrSendBufferFull = errors.New("gateway send buffer full")
)

// Conn is one identified websocket client. Writes are serialized through a
// buffered channel drained by writePump, so Push never touches the network.
// A client that lets the buffer fill up is disconnected and has to resume.
type Conn struct {
	id      string
	ws      *websocket.Conn
	userID  string
	version string

	profileMu sync.RWMutex
	profile   session.Profile

	sendMu sync.Mutex
	send   chan []byte
	seq    int64
	closed bool

	done chan struct{}
}

func newConn(ws *websocket.Conn, profile session.Profile, version string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	c := &Conn{
		id:      uuid.NewString(),
		ws:      ws,
		userID:  profile.ID,
		version: version,
		profile: profile,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *Conn) writePump() {
	defer close(c.done)
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("gateway write failed", "session_id", c.id, "error", err)
			return
		}
	}
}

func (c *Conn) ID() string              { return c.id }
func (c *Conn) UserID() string          { return c.userID }
func (c *Conn) ProtocolVersion() string { return c.version }

func (c *Conn) Profile() session.Profile {
	c.profileMu.RLock()
	defer c.profileMu.RUnlock()
	return c.profile
}

// SetProfile replaces the cached profile. The user ID is fixed at identify
// and cannot be changed through the profile.
func (c *Conn) SetProfile(profile session.Profile) {
	profile.ID = c.userID
	c.profileMu.Lock()
	c.profile = profile
	c.profileMu.Unlock()
}

func (c *Conn) EmitSelfUpdate() error {
	return c.Push("USER_UPDATE", c.Profile().Payload())
}

// Push enqueues a dispatch frame with the next sequence number. The number is
// only consumed when the frame is accepted.
func (c *Conn) Push(eventType string, payload session.Payload) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	b, err := json.Marshal(outboundFrame{Op: OpDispatch, Type: eventType, Seq: c.seq + 1, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", eventType, err)
	}
	select {
	case c.send <- b:
		c.seq++
		return nil
	default:
		c.dropLocked()
		return ErrSendBufferFull
	}
}

func (c *Conn) enqueue(f outboundFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		c.dropLocked()
		return ErrSendBufferFull
	}
}

// Close stops accepting frames. Already queued frames are still flushed
// before the socket closes.
func (c *Conn) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// dropLocked disconnects a client that cannot keep up. Closing the socket
// ends the read loop, which unregisters the session. Caller holds sendMu.
func (c *Conn) dropLocked() {
	if c.closed {
		return
	}
	slog.Debug("gateway send buffer overflow, dropping client", "session_id", c.id, "user_id", c.userID)
	c.closed = true
	close(c.send)
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

// Done is closed once the write pump has exited and the socket is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
