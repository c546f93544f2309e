package handlers

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/beamdrop/services/backend/cmd/signaling-service/internal/models"
	"github.com/beamdrop/services/backend/internal/metrics"
	"github.com/beamdrop/services/backend/internal/ratelimit"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Implement proper origin checking in production
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // enough for WebRTC SDP blobs
)

// ServeWs gates the request through admission control, upgrades it to a
// websocket and runs the connection's pumps. Rejected sources never reach
// protocol handling.
func ServeWs(handler *MessageHandler, limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := sourceAddr(r)
		if err := limiter.Allow(addr); err != nil {
			metrics.RejectedConnections.Inc()
			log.Printf("[INFO] Connection from %s refused: %v", addr, err)
			http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[ERROR] Failed to upgrade connection: %v", err)
			return
		}

		client := &models.Client{
			Conn:   conn,
			Send:   make(chan []byte, 256),
			UserID: uuid.New().String(),
			Done:   make(chan struct{}),
		}
		metrics.ActiveConnections.Inc()
		log.Printf("[INFO] WebSocket connection established: %s (%s)", client.UserID, r.RemoteAddr)

		go writePump(client)

		// Tell the peer its connection id before any room traffic.
		client.QueueSend(models.MarshalMessage(models.TypeConnected, models.UserEvent{UserID: client.UserID}))

		readPump(client, handler)
	}
}

// sourceAddr strips the port so the limiter keys on the host address alone.
func sourceAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// readPump reads frames off the connection and hands them to the message
// handler. It blocks until the connection drops, then runs the disconnect
// cleanup.
func readPump(client *models.Client, handler *MessageHandler) {
	defer func() {
		handler.Disconnect(client)
		close(client.Done)
		client.Conn.Close()
		metrics.ActiveConnections.Dec()
		log.Printf("[INFO] WebSocket connection closed: %s", client.UserID)
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ERROR] Read error for client %s: %v", client.UserID, err)
			}
			break
		}

		var msg models.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[DEBUG] Dropping unparseable frame from %s: %v", client.UserID, err)
			continue
		}

		handler.HandleMessage(msg, client)
	}
}

// writePump drains the client's outbound channel onto the websocket and
// keeps the connection alive with pings. It is the only writer for the
// connection.
func writePump(client *models.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[ERROR] Write error for client %s: %v", client.UserID, err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done:
			return
		}
	}
}
