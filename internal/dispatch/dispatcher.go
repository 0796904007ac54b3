// Package dispatch turns realtime frames into action calls and their
// results into reply frames.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/core"
	"github.com/vovakirdan/streamchat/internal/proto"
)

// Protocol error texts.
const (
	MsgParseError       = "Json parse error"
	MsgNoAction         = "Action is not specified"
	MsgNoRequestUID     = "requestUid is not specified"
	MsgInternalError    = "Internal Error"
	msgUnmappedTemplate = "action %q is to mapped"
)

// Lifecycle receives the connect and close phases of a connection.
type Lifecycle interface {
	Connect(ctx context.Context, c *core.Client, params core.ConnectParams) error
	Close(ctx context.Context, c *core.Client) error
}

// Dispatcher validates inbound frames and routes them to actions.
type Dispatcher struct {
	actions   map[string]core.Action
	lifecycle Lifecycle
	log       *zerolog.Logger
}

// New builds a dispatcher over a fixed action table.
func New(actions map[string]core.Action, lifecycle Lifecycle, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{actions: actions, lifecycle: lifecycle, log: logger}
}

// Connect runs the connect phase with the connection's query parameters.
// Failures are logged; nothing is replied.
func (d *Dispatcher) Connect(ctx context.Context, c *core.Client, query url.Values) {
	if d.lifecycle == nil {
		return
	}
	params := core.ConnectParams{RoomID: query.Get("roomId")}
	if err := d.lifecycle.Connect(ctx, c, params); err != nil {
		d.log.Warn().Err(err).Str("client_id", c.ID).Str("room", params.RoomID).Msg("connect")
	}
}

// Close runs the close phase. The transport is gone, so nothing is replied.
func (d *Dispatcher) Close(ctx context.Context, c *core.Client) {
	if d.lifecycle == nil {
		return
	}
	if err := d.lifecycle.Close(ctx, c); err != nil {
		d.log.Warn().Err(err).Str("client_id", c.ID).Msg("close")
	}
}

// Handle processes one inbound frame. Deferred results are replied from
// a separate goroutine once they settle; a disconnect does not cancel them.
func (d *Dispatcher) Handle(ctx context.Context, c *core.Client, frame []byte) {
	var in proto.Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		d.log.Debug().Err(err).Str("client_id", c.ID).Msg(MsgParseError)
		c.Send(&core.Event{Kind: core.EventReply, Err: proto.Error{Msg: MsgParseError}})
		return
	}

	// Every check runs and the last failure wins; clients depend on
	// this precedence.
	var failure string
	if in.Action == "" {
		failure = MsgNoAction
	}
	if !in.HasRequestUID() {
		failure = MsgNoRequestUID
	}
	action, ok := d.actions[in.Action]
	if !ok {
		failure = fmt.Sprintf(msgUnmappedTemplate, in.Action)
	}
	if failure != "" {
		d.log.Debug().Str("client_id", c.ID).Str("action", in.Action).Msg(failure)
		c.Send(&core.Event{Kind: core.EventReply, RequestUID: in.RequestUID, Err: proto.Error{Msg: failure}})
		return
	}

	res := d.invoke(ctx, action, c, in.Params)
	if res.IsPending() {
		go func() {
			d.reply(c, in, frame, res.Await(context.WithoutCancel(ctx)))
		}()
		return
	}
	d.reply(c, in, frame, res)
}

func (d *Dispatcher) invoke(ctx context.Context, action core.Action, c *core.Client, params json.RawMessage) (res core.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = core.Fail(fmt.Errorf("action panic: %v", p))
		}
	}()
	return action(ctx, c, params)
}

func (d *Dispatcher) reply(c *core.Client, in proto.Inbound, frame []byte, res core.Result) {
	if !res.HasReply() {
		return
	}
	ev := &core.Event{Kind: core.EventReply, RequestUID: in.RequestUID}
	if err := res.Err(); err != nil {
		var coreErr *core.Error
		switch {
		case errors.As(err, &coreErr):
			ev.Err = coreErr
		default:
			if !errors.Is(err, context.Canceled) {
				d.log.Error().Err(err).Str("client_id", c.ID).Str("action", in.Action).
					Bytes("frame", frame).Msg("action failed")
			}
			ev.Err = MsgInternalError
		}
	} else {
		ev.Data = res.Data()
	}
	c.Send(ev)
}
