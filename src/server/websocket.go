package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *HTTPServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warning("Failed to upgrade websocket: %v", err)
		return
	}

	id := uuid.NewString()
	client := newClient(id, s.hub, conn, s.Config.WebSocket, s.Logger.Named("ws").With("client_id", id))

	if err := s.hub.Register(client); err != nil {
		s.Logger.Warning("Rejecting websocket client %s: %v", id, err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	s.Logger.Info("Client %s connected from %s", id, c.ClientIP())

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}
