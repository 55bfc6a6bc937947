package acp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"
)

type fakeHandler struct{}

func (fakeHandler) Initialize(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"protocol_version": "1"})
}

func (fakeHandler) NewSession(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(NewSessionResult{SessionID: "sess-1"})
}

func (fakeHandler) Prompt(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error) {
	_ = conn.Notify(MethodSessionUpdate, SessionUpdate{SessionID: "sess-1", Kind: "text_chunk", TextChunk: "working..."})
	return json.Marshal(PromptResult{Response: "done"})
}

func (fakeHandler) Cancel(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]bool{"cancelled": true})
}

func newPipedPair() (server *Server, client *Client) {
	r1, w1 := io.Pipe() // client -> server
	r2, w2 := io.Pipe() // server -> client

	serverConn := NewConn(r1, w2)
	clientConn := NewConn(r2, w1)

	server = NewServer(fakeHandler{}, serverConn)
	client = NewClient(clientConn)
	return server, client
}

func TestClientServerRoundTrip(t *testing.T) {
	server, client := newPipedPair()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go server.Serve(ctx)
	go client.Run()

	if _, err := client.Call(ctx, MethodInitialize, InitializeParams{ProtocolVersion: "1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	raw, err := client.Call(ctx, MethodNewSession, NewSessionParams{Cwd: "/tmp"})
	if err != nil {
		t.Fatalf("new_session: %v", err)
	}
	var session NewSessionResult
	if err := json.Unmarshal(raw, &session); err != nil {
		t.Fatalf("unmarshal new_session result: %v", err)
	}
	if session.SessionID != "sess-1" {
		t.Fatalf("expected sess-1, got %q", session.SessionID)
	}

	raw, err = client.Call(ctx, MethodPrompt, PromptParams{SessionID: session.SessionID, ContentBlocks: []string{"hello"}})
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	var result PromptResult
	json.Unmarshal(raw, &result)
	if result.Response != "done" {
		t.Fatalf("expected done, got %q", result.Response)
	}

	select {
	case update := <-client.Updates():
		if update.TextChunk != "working..." {
			t.Fatalf("expected working... chunk, got %q", update.TextChunk)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session update")
	}
}

func TestUnknownMethodReturnsMethodNotFoundError(t *testing.T) {
	server, client := newPipedPair()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go server.Serve(ctx)
	go client.Run()

	_, err := client.Call(ctx, "not_a_real_method", nil)
	if err == nil {
		t.Fatal("expected an error for unknown method")
	}
}
