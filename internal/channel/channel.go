// Package channel implements named method channels: a caller invokes a
// method on a channel and gets back exactly one reply, either a success
// value, an error or "not implemented".
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Error codes produced by the channel layer itself.
const (
	CodeNoChannel = "NO_CHANNEL"
	CodeBadArgs   = "BAD_ARGS"
	CodeInternal  = "INTERNAL"
)

// MethodCall is a single invocation.
type MethodCall struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// DecodeArgs unmarshals the call arguments into v.
func (c MethodCall) DecodeArgs(v any) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("method %q requires arguments", c.Method)
	}
	return json.Unmarshal(c.Args, v)
}

// ReplyError is the error form of a Reply.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type replyKind int

const (
	kindSuccess replyKind = iota
	kindError
	kindNotImplemented
)

// Reply is the outcome of a MethodCall.
type Reply struct {
	kind  replyKind
	value any
	err   *ReplyError
}

// Success wraps a result value.
func Success(v any) Reply {
	return Reply{kind: kindSuccess, value: v}
}

// Error builds an error reply.
func Error(code, message string, details any) Reply {
	return Reply{kind: kindError, err: &ReplyError{Code: code, Message: message, Details: details}}
}

// NotImplemented is the reply for methods a channel does not handle.
func NotImplemented() Reply {
	return Reply{kind: kindNotImplemented}
}

// IsSuccess reports whether r carries a result.
func (r Reply) IsSuccess() bool { return r.kind == kindSuccess }

// IsNotImplemented reports whether r is a not-implemented reply.
func (r Reply) IsNotImplemented() bool { return r.kind == kindNotImplemented }

// Value returns the success value.
func (r Reply) Value() any { return r.value }

// Err returns the error payload, or nil.
func (r Reply) Err() *ReplyError { return r.err }

// Envelope is the JSON frame used on the wire, for requests, replies and
// pushed events alike.
type Envelope struct {
	ID             json.RawMessage `json:"id,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	Method         string          `json:"method,omitempty"`
	Args           json.RawMessage `json:"args,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *ReplyError     `json:"error,omitempty"`
	NotImplemented bool            `json:"notImplemented,omitempty"`
	Event          string          `json:"event,omitempty"`
	Payload        any             `json:"payload,omitempty"`
}

// Envelope renders r as a reply frame.
func (r Reply) Envelope() Envelope {
	switch r.kind {
	case kindError:
		return Envelope{Error: r.err}
	case kindNotImplemented:
		return Envelope{NotImplemented: true}
	}
	raw, err := json.Marshal(r.value)
	if err != nil {
		return Envelope{Error: &ReplyError{Code: CodeInternal, Message: "encode result: " + err.Error()}}
	}
	return Envelope{Result: raw}
}

// Handler serves the methods of one channel.
type Handler func(ctx context.Context, call MethodCall) Reply

// Registry maps channel names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return fmt.Errorf("channel name and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Channels lists registered channel names in sorted order.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches call to the named channel. A panicking handler yields
// an INTERNAL error reply.
func (r *Registry) Invoke(ctx context.Context, name string, call MethodCall) (reply Reply) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return Error(CodeNoChannel, fmt.Sprintf("no channel named %q", name), nil)
	}

	defer func() {
		if p := recover(); p != nil {
			reply = Error(CodeInternal, fmt.Sprintf("handler panic: %v", p), nil)
		}
	}()
	return h(ctx, call)
}
