package web

import (
	"context"
	"net/http"
	"time"

	"courier/domain"
	"courier/runtime"
	"courier/sink"

	"github.com/gorilla/websocket"
)

// writeWait bounds every write to a peer, control frames included.
const writeWait = 10 * time.Second

// createUpgrader creates a WebSocket upgrader with the given allowed origins.
func createUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients carry no Origin header
				return true
			}
			return allowedMap[origin]
		},
	}
}

// wsTransport adapts a gorilla connection to the liveness monitor.
// WriteControl may be called concurrently with the write pump.
type wsTransport struct {
	conn *websocket.Conn
}

func (t wsTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t wsTransport) Close() error {
	return t.conn.Close()
}

// HandleWebSocket handles GET /ws.
//
// The connection is admitted before its credential resolves; a failed
// resolution leaves it connected but anonymous: it keeps receiving roster
// updates and heartbeats, and its envelopes are dropped. Removal happens
// exactly once whether the peer closes, the read loop errors, or the
// liveness monitor declares the connection dead.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := createUpgrader(s.opts.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	outbox := sink.NewOutbox(s.log, s.opts.OutboxSize, s.opts.DeliveryTimeout)
	handle := s.registry.Admit(outbox)
	s.log.Debug("Connection admitted", "total", s.registry.Len())

	// Handshake credential from the token cookie
	if cookie, err := r.Cookie("token"); err == nil {
		if identity, err := s.resolver.Resolve(cookie.Value); err == nil {
			s.registry.Resolve(handle, identity)
		} else {
			s.log.Warn("Credential did not resolve, connection stays anonymous", "error", err)
		}
	}

	monitor := runtime.NewMonitor(s.log, wsTransport{conn: conn},
		s.opts.ProbeInterval, s.opts.DeathTimeout, func() {
			// Liveness timeout: the monitor already force-closed the
			// transport, evict and let the presence pass follow.
			s.registry.Remove(handle)
			outbox.Close()
		})
	conn.SetPongHandler(func(string) error {
		monitor.Pong()
		return nil
	})

	go s.writePump(conn, outbox)
	monitor.Start()

	s.readLoop(r.Context(), conn, handle)

	// Normal teardown path; every step is idempotent against the
	// monitor's death path.
	monitor.Stop()
	s.registry.Remove(handle)
	outbox.Close()
	_ = conn.Close()
	s.log.Debug("Connection closed", "total", s.registry.Len())
}

// readLoop feeds inbound envelopes to the relay until the transport drops.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, handle *runtime.Conn) {
	for {
		var envelope domain.Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			s.log.Debug("Read loop ended", "error", err)
			return
		}
		if err := s.relay.HandleInbound(ctx, handle, envelope); err != nil {
			// Persist failures drop the message but keep the connection
			s.log.Error("Inbound envelope failed", "error", err)
		}
	}
}

// writePump serializes every application write to the peer.
func (s *Server) writePump(conn *websocket.Conn, outbox *sink.Outbox) {
	for {
		select {
		case payload := <-outbox.Queue():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(payload); err != nil {
				s.log.Debug("Write pump ended", "error", err)
				return
			}
		case <-outbox.Done():
			return
		}
	}
}
