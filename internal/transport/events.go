package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/aepbridge/internal/dyn"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer frames may queue per client before new ones are dropped.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents streams every emitted event as {event, payload}. Clients
// only listen; anything they send is discarded. The subscription is taken
// before the handshake completes, so a client sees every event emitted
// after its dial returns.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	send := make(chan []byte, sendBuffer)
	done := make(chan struct{})
	sub := s.bridge.Events().SubscribeAll(func(name string, payload dyn.Value) {
		frame, err := dyn.MarshalCanonical(dyn.Map{"event": dyn.String(name), "payload": payload})
		if err != nil {
			s.logger.Error("encode event", "event", name, "error", err)
			return
		}
		select {
		case send <- frame:
		case <-done:
		default:
			s.logger.Warn("event client too slow; dropping frame", "event", name)
		}
	})

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Unsubscribe()
		close(done)
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	go s.writePump(conn, send, done)
	s.readPump(conn)

	sub.Unsubscribe()
	close(done)
}

func (s *Server) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
