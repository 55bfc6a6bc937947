package acp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler implements the child side of the Agent Client Protocol: the
// four methods the parent drives, each given the connection so prompt
// handling can stream session_notification updates back before it
// returns its final result.
type Handler interface {
	Initialize(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error)
	NewSession(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error)
	Prompt(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error)
	Cancel(ctx context.Context, conn *Conn, params json.RawMessage) (json.RawMessage, error)
}

// Server dispatches framed requests to a Handler, one at a time, in the
// order received.
type Server struct {
	handler Handler
	conn    *Conn
}

// NewServer builds a Server around handler reading/writing over conn.
func NewServer(handler Handler, conn *Conn) *Server {
	return &Server{handler: handler, conn: conn}
}

// Serve reads one request per line until the stream closes or ctx is
// canceled, dispatching each to the handler and writing its response
// before reading the next line.
func (s *Server) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, ok := s.conn.readLine()
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = s.conn.writeLine(Response{JSONRPC: "2.0", Error: &Error{Code: ErrParseError, Message: err.Error()}})
			continue
		}

		result, rpcErr := s.dispatch(ctx, req)
		resp := Response{JSONRPC: "2.0", ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
		if err := s.conn.writeLine(resp); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) (json.RawMessage, *Error) {
	var (
		result json.RawMessage
		err    error
	)
	switch req.Method {
	case MethodInitialize:
		result, err = s.handler.Initialize(ctx, s.conn, req.Params)
	case MethodNewSession:
		result, err = s.handler.NewSession(ctx, s.conn, req.Params)
	case MethodPrompt:
		result, err = s.handler.Prompt(ctx, s.conn, req.Params)
	case MethodCancel:
		result, err = s.handler.Cancel(ctx, s.conn, req.Params)
	default:
		return nil, &Error{Code: ErrMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
	if err != nil {
		return nil, &Error{Code: ErrInternalError, Message: err.Error()}
	}
	return result, nil
}
