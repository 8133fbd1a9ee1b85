package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/replaylab/sim-backend/internal/api"
	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestHubBroadcastRunCompleted(t *testing.T) {
	hub := api.NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Close)

	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	defer conn.Close()

	// Give the hub loop a moment to register the client before the
	// broadcast fans out.
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastRunCompleted(&types.SimulationResult{
		ID:           "run-1",
		FinalCapital: decimal.NewFromInt(9850),
		TradeCount:   3,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}

	var msg api.WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if msg.Type != api.MsgTypeRunCompleted {
		t.Errorf("Expected %s message, got %s", api.MsgTypeRunCompleted, msg.Type)
	}

	var payload struct {
		ID         string `json:"id"`
		TradeCount int    `json:"tradeCount"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload.ID != "run-1" || payload.TradeCount != 3 {
		t.Errorf("Unexpected payload %+v", payload)
	}
}
