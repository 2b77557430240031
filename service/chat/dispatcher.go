package chat

import (
	"context"
	"encoding/json"

	"realchat/tools/errs"
)

// HandlerFunc handles one inbound event on behalf of one client. Returned
// errors go back to the initiating connection only, as an error frame.
type HandlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.handlers[event] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, f *Frame) error {
	h, ok := d.handlers[f.Event]
	if !ok {
		return errs.ErrBadPayload.WithDetail("unknown event: " + f.Event)
	}
	return h(ctx, c, f.Data)
}
