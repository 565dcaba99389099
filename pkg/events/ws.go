package events

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Hub streams every bus event to connected UI clients as JSON frames.
type Hub struct {
	bus      *Bus
	upgrader websocket.Upgrader
}

func NewHub(bus *Bus) *Hub {
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			// the fixture serves localhost development; any origin may listen.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades the request and pumps events until the client leaves.
func (h *Hub) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		clientID := uuid.NewString()
		c.Logger().Debugf("events client connected: %s", clientID)

		ch, cancel := h.bus.Subscribe(16)
		defer cancel()
		defer conn.Close()

		// the read pump only watches for the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-gone:
				c.Logger().Debugf("events client left: %s", clientID)
				return nil
			case ev := <-ch:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(ev); err != nil {
					return nil
				}
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return nil
				}
			}
		}
	}
}
