package chat

import (
	"time"

	"github.com/gorilla/websocket"

	"flashmeet/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundSize = 512
)

// Client is one websocket subscription to a meetup's room. The socket
// is read-only for the subscriber; messages are posted over the HTTP
// API and arrive here as events.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	meetupID      string
	participantID string
	closeTime     time.Time

	send chan []byte
}

// NewClient wraps an upgraded connection. closeTime is the end of the
// room's chat window; the hub uses it for countdown ticks and
// teardown.
func NewClient(hub *Hub, conn *websocket.Conn, meetupID, participantID string, closeTime time.Time) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		meetupID:      meetupID,
		participantID: participantID,
		closeTime:     closeTime,
		send:          make(chan []byte, 32),
	}
}

// Serve attaches the client to the hub and pumps until the connection
// or the room goes away.
func (c *Client) Serve() {
	c.hub.Attach(c)
	go c.writePump()
	c.readPump()
}

// readPump drains the connection so pings/close frames are processed;
// inbound payloads are ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("Websocket read error for meetup %s: %v", c.meetupID, err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the room
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
