package push

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pagestreamhq/pagestream/utils"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the app origin, which is fronted by the
	// same CORS policy as the HTTP surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame keeps data raw until the event name decides its shape.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (f *inboundFrame) decodeData(v interface{}) error {
	if len(f.Data) == 0 {
		return nil
	}
	return json.Unmarshal(f.Data, v)
}

type authRequest struct {
	Token string `json:"token"`
}

type joinRoomRequest struct {
	Room string `json:"room"`
}

// Handler upgrades the connection and runs the handshake: the first client
// frame must be an auth event carrying a bearer token that verifies to a
// non-empty subject. A session that fails the handshake never enters the
// session map and receives no events; on success the session gets a
// connected event addressed to it alone.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			Logger.Log.Warnf("websocket upgrade failed: %v", err)
			return
		}

		subject, err := handshake(conn)
		if err != nil {
			Logger.Log.Warnf("push handshake refused: %v", err)
			conn.Close()
			return
		}

		session := newSession("session_"+uuid.New().String(), subject, conn, hub)
		hub.register(session)

		go session.writePump()
		session.enqueue(Frame{Event: EventConnected, Data: map[string]string{
			"status":  "connected",
			"user_id": subject,
		}})
		go session.readPump()
	}
}

func handshake(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authWait))
	defer conn.SetReadDeadline(time.Time{})

	frame := inboundFrame{}
	if err := conn.ReadJSON(&frame); err != nil {
		return "", err
	}
	if frame.Event != eventAuth {
		return "", errFirstFrameNotAuth
	}

	req := authRequest{}
	if err := frame.decodeData(&req); err != nil {
		return "", err
	}
	if req.Token == "" {
		return "", errEmptyToken
	}

	return utils.VerifyJWTSubject(req.Token)
}
