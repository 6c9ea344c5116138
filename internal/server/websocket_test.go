package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cruciblelabs/crucible/internal/sandbox"
)

func dialWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/execute/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading websocket message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decoding %q: %v", data, err)
	}
	return msg
}

func TestExecuteWSStreamsChunksThenExit(t *testing.T) {
	engine := &stubEngine{
		res: &sandbox.Result{ExitCode: intPtr(0), Stdout: "ab", Stderr: "c"},
		chunks: []stubChunk{
			{stream: "stdout", data: "ab"},
			{stream: "stderr", data: "c"},
		},
	}
	s := newTestServer(t, engine, nil)
	conn := dialWS(t, s)

	if err := conn.WriteJSON(map[string]string{"type": "execute", "code": "snippet"}); err != nil {
		t.Fatalf("writing execute message: %v", err)
	}

	msg := readWS(t, conn)
	if msg["type"] != "stdout" || msg["data"] != "ab" {
		t.Errorf("first message = %v, want a stdout chunk", msg)
	}

	msg = readWS(t, conn)
	if msg["type"] != "stderr" || msg["data"] != "c" {
		t.Errorf("second message = %v, want a stderr chunk", msg)
	}

	msg = readWS(t, conn)
	if msg["type"] != "exit" {
		t.Fatalf("final message = %v, want exit", msg)
	}
	if code, ok := msg["exitCode"].(float64); !ok || code != 0 {
		t.Errorf("exitCode = %v, want 0", msg["exitCode"])
	}
	if engine.lastCode != "snippet" {
		t.Errorf("engine received %q, want the submitted code", engine.lastCode)
	}
}

func TestExecuteWSKilledRunReportsNullExitCode(t *testing.T) {
	engine := &stubEngine{res: &sandbox.Result{Killed: true}}
	s := newTestServer(t, engine, nil)
	conn := dialWS(t, s)

	if err := conn.WriteJSON(map[string]string{"type": "execute", "code": "loop"}); err != nil {
		t.Fatal(err)
	}

	msg := readWS(t, conn)
	if msg["type"] != "exit" {
		t.Fatalf("message = %v, want exit", msg)
	}
	if msg["exitCode"] != nil {
		t.Errorf("exitCode = %v, want null for a killed run", msg["exitCode"])
	}
	if msg["killed"] != true {
		t.Errorf("killed = %v, want true", msg["killed"])
	}
}

// blockingEngine parks until its context is cancelled, recording that
// the cancellation arrived.
type blockingEngine struct {
	cancelled chan struct{}
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{cancelled: make(chan struct{})}
}

func (e *blockingEngine) Run(ctx context.Context, code string) (*sandbox.Result, error) {
	return e.RunStreaming(ctx, code, nil)
}

func (e *blockingEngine) RunStreaming(ctx context.Context, code string, sink sandbox.Sink) (*sandbox.Result, error) {
	select {
	case <-ctx.Done():
		close(e.cancelled)
		return &sandbox.Result{Killed: true}, nil
	case <-time.After(5 * time.Second):
		return &sandbox.Result{ExitCode: intPtr(0)}, nil
	}
}

func TestExecuteWSClientDisconnectCancelsRun(t *testing.T) {
	engine := newBlockingEngine()
	s := newTestServer(t, engine, nil)
	conn := dialWS(t, s)

	if err := conn.WriteJSON(map[string]string{"type": "execute", "code": "loop"}); err != nil {
		t.Fatal(err)
	}

	// Give the handler time to start the run, then drop the peer.
	time.Sleep(100 * time.Millisecond)
	conn.Close()

	select {
	case <-engine.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("closing the connection did not cancel the running execution")
	}
}

func TestExecuteWSRejectsUnknownMessageType(t *testing.T) {
	engine := &stubEngine{res: &sandbox.Result{}}
	s := newTestServer(t, engine, nil)
	conn := dialWS(t, s)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}

	msg := readWS(t, conn)
	if msg["type"] != "error" {
		t.Errorf("message = %v, want an error", msg)
	}
	if engine.calls != 0 {
		t.Error("engine must not run for an invalid message")
	}
}
