package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"campuswatch/core"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialWs opens an authenticated websocket connection against the harness.
func dialWs(t *testing.T, h *testHarness, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// pendingFrames holds batch parts left over after awaitFrame matched an
// earlier part of the same websocket message, so a later awaitFrame call
// on the same connection still sees them.
var pendingFrames = map[*websocket.Conn][][]byte{}

// awaitFrame reads frames until one of the wanted type arrives. Batched
// writes pack several newline-separated frames into one message.
func awaitFrame(t *testing.T, conn *websocket.Conn, wantType string) wsOutbound {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for time.Now().Before(deadline) {
		parts := pendingFrames[conn]
		delete(pendingFrames, conn)
		if len(parts) == 0 {
			_, raw, err := conn.ReadMessage()
			require.NoError(t, err)
			parts = bytes.Split(raw, []byte{'\n'})
		}
		for i, part := range parts {
			if len(part) == 0 {
				continue
			}
			var frame wsOutbound
			require.NoError(t, json.Unmarshal(part, &frame))
			if frame.Type == wantType {
				if rest := parts[i+1:]; len(rest) > 0 {
					pendingFrames[conn] = rest
				}
				return frame
			}
		}
	}
	t.Fatalf("no %q frame received", wantType)
	return wsOutbound{}
}

func send(t *testing.T, conn *websocket.Conn, frame wsInbound) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	h := newHarness(t)

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketChatRoundTrip(t *testing.T) {
	h := newHarness(t)
	userToken, _ := h.registerUser(t, "ws-user@campus.edu")
	adminToken := h.tokenFor(t, "admin-001", core.RoleAdmin)

	// Create the report and its room over HTTP first.
	var report core.Report
	status := h.do(t, http.MethodPost, "/api/reports", userToken, map[string]string{
		"title":       "noise complaint",
		"description": "loud party in the dorms past midnight",
	}, &report)
	require.Equal(t, http.StatusCreated, status)

	var room core.ChatRoom
	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/chat", userToken, nil, &room)
	require.Equal(t, http.StatusOK, status)

	userConn := dialWs(t, h, userToken)
	adminConn := dialWs(t, h, adminToken)

	send(t, userConn, wsInbound{Type: "join-room", RoomID: room.ID})
	awaitFrame(t, userConn, "joined")

	// Privileged roles may join rooms they are not yet participants of.
	send(t, adminConn, wsInbound{Type: "join-room", RoomID: room.ID})
	awaitFrame(t, adminConn, "joined")

	send(t, adminConn, wsInbound{Type: "send-message", RoomID: room.ID, Body: "officer on the way"})
	awaitFrame(t, adminConn, "sent")

	// The broadcast reaches the reporter only after the durable write.
	frame := awaitFrame(t, userConn, "message")
	data, err := json.Marshal(frame.Data)
	require.NoError(t, err)
	var msg core.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "officer on the way", msg.Body)
	assert.Equal(t, core.RoleAdmin, msg.SenderRole)

	// The fan-out notification reaches the reporter's connection too.
	notif := awaitFrame(t, userConn, "notification")
	data, err = json.Marshal(notif.Data)
	require.NoError(t, err)
	var n core.Notification
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, "New message from Admin: officer on the way", n.Message)
}

func TestHubDropThenSendIsSafe(t *testing.T) {
	h := newHarness(t)
	hub := h.api.hub

	c := &client{
		hub:      hub,
		send:     make(chan []byte, 1),
		identity: core.Identity{UserID: "drop-me", Role: core.RoleUser},
	}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- c
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// The pumps can still answer inbound frames after the hub dropped the
	// client; those sends must be discarded, not crash the process.
	assert.NotPanics(t, func() {
		c.sendFrame(wsOutbound{Type: "sent"})
		c.sendError("late reply")
	})
}

func TestWebsocketRejectsStrangers(t *testing.T) {
	h := newHarness(t)
	userToken, _ := h.registerUser(t, "owner@campus.edu")
	strangerToken, _ := h.registerUser(t, "stranger@campus.edu")

	var report core.Report
	status := h.do(t, http.MethodPost, "/api/reports", userToken, map[string]string{
		"title":       "bike theft",
		"description": "bike stolen from the rack",
	}, &report)
	require.Equal(t, http.StatusCreated, status)

	var room core.ChatRoom
	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/chat", userToken, nil, &room)
	require.Equal(t, http.StatusOK, status)

	conn := dialWs(t, h, strangerToken)
	send(t, conn, wsInbound{Type: "join-room", RoomID: room.ID})
	frame := awaitFrame(t, conn, "error")
	assert.Contains(t, frame.Error, "cannot join room")

	send(t, conn, wsInbound{Type: "bogus"})
	frame = awaitFrame(t, conn, "error")
	assert.Equal(t, "unknown frame type", frame.Error)
}
