package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/michaelbrown/podmirror/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // deployment-side auth, not origin checks
	},
}

// wsIncoming is a message from the client: either the initial run request
// or a cancel.
type wsIncoming struct {
	Type string `json:"type"` // "run" or "cancel"
	runRequest
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// handleRunWS runs one request over a websocket, streaming lifecycle
// stages as they begin and the result (or typed error) at the end. The
// client can abort with a cancel message or by disconnecting.
func (s *Server) handleRunWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	var msg wsIncoming
	if err := conn.ReadJSON(&msg); err != nil {
		log.Printf("websocket read error: %v", err)
		return
	}
	if msg.Type != "run" || msg.Deployment == "" {
		wsWriteJSON(conn, wsOutgoing{Type: "error", Kind: "bad_request", Error: "first message must be a run request with a deployment"})
		return
	}

	oreq, err := s.buildRequest(msg.runRequest)
	if err != nil {
		wsWriteJSON(conn, wsOutgoing{Type: "error", Kind: "bad_request", Error: err.Error()})
		return
	}

	id := uuid.New().String()
	ctx := s.runs.Begin(id, context.Background())
	defer s.runs.End(id)

	// Mutex for thread-safe writes to the websocket connection
	var wsMu sync.Mutex
	send := func(out wsOutgoing) {
		wsMu.Lock()
		wsWriteJSON(conn, out)
		wsMu.Unlock()
	}

	send(wsOutgoing{Type: "started", ID: id})

	oreq.OnStage = func(stage orchestrator.Stage) {
		send(wsOutgoing{Type: "stage", Stage: string(stage)})
	}

	// Watch for cancel messages or disconnects while the run executes.
	go func() {
		for {
			var in wsIncoming
			if err := conn.ReadJSON(&in); err != nil {
				s.runs.Cancel(id)
				return
			}
			if in.Type == "cancel" {
				s.runs.Cancel(id)
				return
			}
		}
	}()

	result, err := s.runner.Run(ctx, oreq)
	if err != nil {
		if ctx.Err() != nil {
			send(wsOutgoing{Type: "error", Kind: "canceled", Error: "interrupted"})
			return
		}
		_, kind := classifyError(err)
		send(wsOutgoing{Type: "error", Kind: kind, Error: err.Error()})
		return
	}

	send(wsOutgoing{Type: "done", ID: id, Stdout: result.Stdout, Stderr: result.Stderr})
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
