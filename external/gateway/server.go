package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/dispatchd/internal/session"
	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

type Options struct {
	HeartbeatInterval time.Duration
	IdentifyTimeout   time.Duration
	SendBuffer        int
}

// Server upgrades HTTP requests to gateway connections and keeps the session
// registry in sync with the connections it accepts.
type Server struct {
	registry   *session.Registry
	identifier session.Identifier
	opts       Options
	upgrader   websocket.Upgrader
}

func NewServer(registry *session.Registry, identifier session.Identifier, opts Options) *Server {
	return &Server{
		registry:   registry,
		identifier: identifier,
		opts:       opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	s.serve(r.Context(), ws)
}

func (s *Server) serve(ctx context.Context, ws *websocket.Conn) {
	hello := outboundFrame{Op: OpHello, Data: helloData{HeartbeatInterval: s.opts.HeartbeatInterval.Milliseconds()}}
	if err := ws.WriteJSON(hello); err != nil {
		ws.Close()
		return
	}

	profile, version, ok := s.identify(ctx, ws)
	if !ok {
		ws.Close()
		return
	}

	conn := newConn(ws, *profile, version, s.opts.SendBuffer)
	s.registry.Register(conn)
	slog.Info("gateway session opened", "session_id", conn.ID(), "user_id", profile.ID, "client_build", version)
	defer func() {
		s.registry.Unregister(conn)
		conn.Close()
		<-conn.Done()
		slog.Info("gateway session closed", "session_id", conn.ID(), "user_id", profile.ID)
	}()

	ready := session.Payload{
		"v":          version,
		"session_id": conn.ID(),
		"user":       profile.Payload(),
	}
	if err := conn.Push(EventReady, ready); err != nil {
		return
	}
	s.readLoop(conn)
}

func (s *Server) identify(ctx context.Context, ws *websocket.Conn) (*session.Profile, string, bool) {
	_ = ws.SetReadDeadline(time.Now().Add(s.opts.IdentifyTimeout))
	var f inboundFrame
	if err := ws.ReadJSON(&f); err != nil {
		slog.Debug("gateway identify read failed", "error", err)
		return nil, "", false
	}
	if f.Op != OpIdentify {
		closeWith(ws, CloseNotAuthenticated, "not authenticated")
		return nil, "", false
	}
	var id identifyData
	if err := json.Unmarshal(f.Data, &id); err != nil || id.Properties.ClientBuild == "" {
		closeWith(ws, CloseDecodeError, "invalid identify payload")
		return nil, "", false
	}

	profile, err := s.identifier.LookupProfile(ctx, id.Token)
	if err != nil {
		slog.Error("gateway profile lookup failed", "error", err)
		closeWith(ws, CloseAuthenticationFailed, "authentication failed")
		return nil, "", false
	}
	if profile == nil {
		closeWith(ws, CloseAuthenticationFailed, "authentication failed")
		return nil, "", false
	}
	return profile, id.Properties.ClientBuild, true
}

// readLoop answers heartbeats until the client goes away or misses one.
func (s *Server) readLoop(conn *Conn) {
	timeout := s.opts.HeartbeatInterval + s.opts.HeartbeatInterval/2
	for {
		_ = conn.ws.SetReadDeadline(time.Now().Add(timeout))
		var f inboundFrame
		if err := conn.ws.ReadJSON(&f); err != nil {
			slog.Debug("gateway read ended", "session_id", conn.ID(), "error", err)
			return
		}
		switch f.Op {
		case OpHeartbeat:
			if err := conn.enqueue(outboundFrame{Op: OpHeartbeatAck}); err != nil {
				slog.Debug("gateway heartbeat ack dropped", "session_id", conn.ID(), "error", err)
			}
		default:
			slog.Debug("gateway ignored opcode", "session_id", conn.ID(), "op", f.Op)
		}
	}
}

func closeWith(ws *websocket.Conn, code int, text string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(closeWriteTimeout))
}
