package server

import (
	"context"
	"encoding/json"

	"github.com/vango-dev/gamewire/pkg/protocol"
)

// ErrorRoute is the route for which EchoHandler answers with an error
// response.
const ErrorRoute = "connector.geterror"

// Handler answers decoded Data messages.
//
// A nil reply sends nothing. The server fills in the Response type and
// the request id on replies to Requests, so handlers may return a bare
// message built with protocol.NewResponse(0, body).
type Handler interface {
	HandleMessage(ctx context.Context, m *protocol.Message) (*protocol.Message, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, m *protocol.Message) (*protocol.Message, error)

// HandleMessage calls f(ctx, m).
func (f HandlerFunc) HandleMessage(ctx context.Context, m *protocol.Message) (*protocol.Message, error) {
	return f(ctx, m)
}

// echoReply is the body EchoHandler sends back for a Request.
type echoReply struct {
	IsCompressed bool   `json:"isCompressed"`
	Route        string `json:"route"`
}

// errorReply is the Pitaya error body.
type errorReply struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// EchoHandler answers every Request with the route it was sent to and
// whether its body arrived compressed. Requests to ErrorRoute get an
// error response. Notifies are accepted silently.
type EchoHandler struct{}

// HandleMessage implements Handler.
func (EchoHandler) HandleMessage(_ context.Context, m *protocol.Message) (*protocol.Message, error) {
	if m.Type != protocol.MessageRequest {
		return nil, nil
	}

	if m.Route == ErrorRoute {
		body, err := json.Marshal(errorReply{Code: "PIT-400", Msg: "mock error"})
		if err != nil {
			return nil, err
		}
		return protocol.NewErrorResponse(m.ID, body), nil
	}

	body, err := json.Marshal(echoReply{IsCompressed: m.Gzipped, Route: m.Route})
	if err != nil {
		return nil, err
	}
	return protocol.NewResponse(m.ID, body), nil
}

// handlerErrorBody is sent when a Handler fails on a Request.
func handlerErrorBody(err error) []byte {
	body, _ := json.Marshal(errorReply{Code: "PIT-500", Msg: err.Error()})
	return body
}
