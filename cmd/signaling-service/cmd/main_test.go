package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamdrop/services/backend/cmd/signaling-service/internal/models"
	"github.com/beamdrop/services/backend/internal/ratelimit"
)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*httptest.Server, *models.Registry) {
	t.Helper()
	registry := models.NewRegistry()
	srv := httptest.NewServer(newRouter(registry, limiter))
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func sendFrame(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.Message{Type: msgType, Payload: raw}))
}

// connect dials and consumes the initial connected frame, returning the
// connection id the server assigned.
func connect(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	conn := dial(t, srv)
	msg := readFrame(t, conn)
	require.Equal(t, models.TypeConnected, msg.Type)
	var ev models.UserEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	require.NotEmpty(t, ev.UserID)
	return conn, ev.UserID
}

func TestEndToEndTransferScenario(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewLimiter(ratelimit.DefaultLimit, ratelimit.DefaultWindow))

	a, aID := connect(t, srv)
	sendFrame(t, a, models.TypeJoinRoom, "ABCDEFGH")

	ack := readFrame(t, a)
	require.Equal(t, models.TypeJoinResponse, ack.Type)
	var resp models.JoinResponse
	require.NoError(t, json.Unmarshal(ack.Payload, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ABCDEFGH", resp.RoomID)

	b, bID := connect(t, srv)
	sendFrame(t, b, models.TypeJoinRoom, models.JoinRoomPayload{RoomID: "ABCDEFGH"})
	ack = readFrame(t, b)
	require.NoError(t, json.Unmarshal(ack.Payload, &resp))
	require.True(t, resp.Success)

	joined := readFrame(t, a)
	require.Equal(t, models.TypeUserJoined, joined.Type)
	var ev models.UserEvent
	require.NoError(t, json.Unmarshal(joined.Payload, &ev))
	assert.Equal(t, bID, ev.UserID)

	sendFrame(t, b, models.TypeOffer, models.SignalPayload{
		RoomID: "ABCDEFGH",
		SDP:    json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})
	offer := readFrame(t, a)
	require.Equal(t, models.TypeOffer, offer.Type)
	var relay models.SignalRelay
	require.NoError(t, json.Unmarshal(offer.Payload, &relay))
	assert.Equal(t, bID, relay.From)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(relay.SDP))

	require.NoError(t, a.Close())

	left := readFrame(t, b)
	require.Equal(t, models.TypeUserLeft, left.Type)
	require.NoError(t, json.Unmarshal(left.Payload, &ev))
	assert.Equal(t, aID, ev.UserID)

	// Room disappears once the last member drops.
	require.NoError(t, b.Close())
	require.Eventually(t, func() bool {
		res, err := http.Get(srv.URL + "/room-status?room_id=ABCDEFGH")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		return res.StatusCode == http.StatusNotFound
	}, 2*time.Second, 50*time.Millisecond)
}

func TestRoomStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewLimiter(ratelimit.DefaultLimit, ratelimit.DefaultWindow))

	res, err := http.Get(srv.URL + "/room-status?room_id=NOSUCHROOM1")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(srv.URL + "/room-status?room_id=not-a-room-id")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	a, _ := connect(t, srv)
	sendFrame(t, a, models.TypeJoinRoom, "STATUSROOM1")
	readFrame(t, a) // ack

	res, err = http.Get(srv.URL + "/room-status?room_id=STATUSROOM1")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var info models.RoomInfo
	require.NoError(t, json.NewDecoder(res.Body).Decode(&info))
	assert.True(t, info.Exists)
	assert.True(t, info.HasUsers)
	assert.False(t, info.IsProtected)
}

func TestAdmissionControlRejectsFloods(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewLimiter(2, time.Minute))

	connect(t, srv)
	connect(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, res)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.NewLimiter(ratelimit.DefaultLimit, ratelimit.DefaultWindow))

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
