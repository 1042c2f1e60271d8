package push

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	authWait       = 10 * time.Second
	maxMessageSize = 64 * 1024

	outboundBuffer = 256
)

// Session is one authenticated websocket connection. Within a session
// delivery is FIFO: all writes funnel through the outbound channel into a
// single write pump.
type Session struct {
	Id      string
	Subject string

	conn *websocket.Conn
	hub  *Hub

	send      chan Frame
	closeOnce sync.Once
}

func newSession(id string, subject string, conn *websocket.Conn, hub *Hub) *Session {
	return &Session{
		Id:      id,
		Subject: subject,
		conn:    conn,
		hub:     hub,
		send:    make(chan Frame, outboundBuffer),
	}
}

// enqueue hands a frame to the write pump without blocking. Returns false
// when the session can no longer accept frames.
func (s *Session) enqueue(frame Frame) (ok bool) {
	defer func() {
		// send may already be closed by a concurrent unregister.
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// readPump consumes client frames until the connection drops. join_room is
// the only event an authenticated client can send.
func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		frame := inboundFrame{}
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Logger.Log.Warnf("session %s closed unexpectedly: %v", s.Id, err)
			}
			return
		}

		if frame.Event == eventJoinRoom {
			req := joinRoomRequest{}
			if err := frame.decodeData(&req); err != nil || req.Room == "" {
				continue
			}
			s.hub.joinRoom(s, req.Room)
			s.enqueue(Frame{Event: EventJoinedRoom, Data: map[string]string{"room": req.Room}})
		}
	}
}

// writePump owns every write on the connection. It drains the outbound
// channel and keeps the connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				Logger.Log.Warnf("fail to write frame to session %s: %v", s.Id, err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
