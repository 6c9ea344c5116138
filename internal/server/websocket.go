package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin playground page; no auth layer here
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// wsChunk carries one piece of child output as it is produced.
type wsChunk struct {
	Type string `json:"type"` // "stdout" or "stderr"
	Data string `json:"data"`
}

// wsExit terminates one execution's message stream.
type wsExit struct {
	Type     string `json:"type"` // "exit"
	ExitCode *int   `json:"exitCode"`
	Killed   bool   `json:"killed"`
}

type wsError struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// handleExecuteWS streams an execution's output live: the client sends
// {"type":"execute","code":…}, the server pushes stdout/stderr chunks
// as the child emits them, then an exit message. One execution at a
// time per connection.
//
// The request context stops noticing a peer drop once the connection is
// hijacked by the upgrade, so a read pump watches the socket for the
// whole connection lifetime; `gone` closing is the disconnect signal
// that kills an in-flight child.
func (s *Server) handleExecuteWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	msgs := make(chan wsIncoming, 4)
	gone := make(chan struct{})
	go func() {
		defer close(msgs)
		defer close(gone)
		for {
			var msg wsIncoming
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("websocket read error: %v", err)
				}
				return
			}
			msgs <- msg
		}
	}()

	for msg := range msgs {
		if msg.Type != "execute" {
			wsWriteJSON(conn, wsError{Type: "error", Error: "invalid message"})
			continue
		}

		s.streamExecution(r.Context(), conn, msg.Code, gone)
	}
}

func (s *Server) streamExecution(parent context.Context, conn *websocket.Conn, code string, gone <-chan struct{}) {
	// A dropped client kills the child through the same context path
	// the timeout uses.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	go func() {
		select {
		case <-gone:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Mutex for thread-safe writes: the two drain goroutines emit
	// chunks concurrently.
	var wsMu sync.Mutex

	sink := &wsSink{conn: conn, mu: &wsMu}

	res, err := s.engine.RunStreaming(ctx, code, sink)

	wsMu.Lock()
	defer wsMu.Unlock()

	if err != nil {
		wsWriteJSON(conn, wsError{Type: "error", Error: err.Error()})
		return
	}

	wsWriteJSON(conn, wsExit{Type: "exit", ExitCode: res.ExitCode, Killed: res.Killed})
}

// wsSink forwards output chunks to the WebSocket connection.
type wsSink struct {
	conn *websocket.Conn
	mu   *sync.Mutex
}

func (s *wsSink) Stdout(p []byte) { s.send("stdout", p) }
func (s *wsSink) Stderr(p []byte) { s.send("stderr", p) }

func (s *wsSink) send(kind string, p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wsWriteJSON(s.conn, wsChunk{Type: kind, Data: string(p)})
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
