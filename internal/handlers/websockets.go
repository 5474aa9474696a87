package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	ws "github.com/samriddhi-1111/GangaGuards/internal/services/websocket"
)

const pongWait = 60 * time.Second

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler subscribes the connection to the session event feed.
// Clients only listen; anything they send is discarded.
func EventsWebsocketHandler(hub *ws.HubService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info("Event subscriber disconnected normally")
				} else {
					log.Debug("Event subscriber disconnected: %v", err)
				}
				return
			}
		}
	}
}
