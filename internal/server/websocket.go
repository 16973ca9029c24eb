package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Call *dispatch.Call `json:"call,omitempty"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	CallID  string `json:"call_id,omitempty"`
	Content string `json:"content,omitempty"`
	Error   bool   `json:"error"`
}

// handleWebSocket runs calls sent over a WebSocket. Calls run concurrently;
// each result carries the client's id. Closing the socket cancels the
// calls still running.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	// Mutex for thread-safe writes to the WebSocket connection
	var wsMu sync.Mutex
	send := func(msg wsOutgoing) {
		wsMu.Lock()
		defer wsMu.Unlock()
		wsWriteJSON(conn, msg)
	}

	// Read loop
	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("websocket read error: %v", err)
			return
		}

		if msg.Type != "call" || msg.Call == nil {
			send(wsOutgoing{Type: "error", ID: msg.ID, Content: "invalid message", Error: true})
			continue
		}

		wg.Add(1)
		go func(msg wsIncoming) {
			defer wg.Done()
			resp := s.run(ctx, *msg.Call)
			send(wsOutgoing{
				Type:    "result",
				ID:      msg.ID,
				CallID:  resp.ID,
				Content: resp.Result,
				Error:   resp.Error,
			})
		}(msg)
	}
}

func wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
