package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/ipc"
	"github.com/vovakirdan/streamchat/internal/tipengine"
)

// Action names accepted from clients.
const (
	ActionJoin           = "join"
	ActionSendMessage    = "send-message"
	ActionMute           = "mute"
	ActionUnmute         = "unmute"
	ActionMakeAdmin      = "make-admin"
	ActionMakeViewer     = "make-viewer"
	ActionSendTip        = "send-tip"
	ActionSetTipGoal     = "set-tip-goal"
	ActionGoPrivate      = "go-private"
	ActionGoPublic       = "go-public"
	ActionAllowGroupShow = "set-allow-group-show"
	ActionSetTitle       = "set-title"
	ActionSetWowzaID     = "set-wowza-id"
	ActionSetProperty    = "set-property"
	ActionRemoveProperty = "remove-property"
)

// Action runs one client request and returns its reply.
type Action func(ctx context.Context, c *Client, params json.RawMessage) Result

// Options tunes the registry.
type Options struct {
	Salt             string
	MaxMessageLength int
	DiffInterval     time.Duration
	ReapInterval     time.Duration
	TipTimeout       time.Duration
}

type handler func(c *Client, params json.RawMessage) Result

// Registry owns every room of one worker. All state is confined to the
// goroutine running Run; other goroutines reach it through do.
type Registry struct {
	opts  Options
	clock clock.Clock
	tips  tipengine.Engine
	log   *zerolog.Logger

	ops     chan func()
	stopped chan struct{}

	// lifetime is set by Run and read on the loop only.
	lifetime context.Context

	rooms    map[string]*Room
	byClient map[string]*Room
	handlers map[string]handler
	routes   map[string]messageRoute
}

// NewRegistry constructs a registry. Call Run to start it.
func NewRegistry(opts Options, clk clock.Clock, tips tipengine.Engine, logger *zerolog.Logger) *Registry {
	r := &Registry{
		opts:     opts,
		clock:    clk,
		tips:     tips,
		log:      logger,
		ops:      make(chan func()),
		stopped:  make(chan struct{}),
		lifetime: context.Background(),
		rooms:    make(map[string]*Room),
		byClient: make(map[string]*Room),
	}
	r.handlers = map[string]handler{
		ActionJoin:           r.join,
		ActionSendMessage:    r.sendMessage,
		ActionMute:           r.mute,
		ActionUnmute:         r.unmute,
		ActionMakeAdmin:      r.makeAdmin,
		ActionMakeViewer:     r.makeViewer,
		ActionSendTip:        r.sendTip,
		ActionSetTipGoal:     r.setTipGoal,
		ActionGoPrivate:      r.goPrivate,
		ActionGoPublic:       r.goPublic,
		ActionAllowGroupShow: r.setAllowGroupShow,
		ActionSetTitle:       r.setTitle,
		ActionSetWowzaID:     r.setWowzaID,
		ActionSetProperty:    r.setProperty,
		ActionRemoveProperty: r.removeProperty,
	}
	r.routes = r.messageRoutes()
	return r
}

// Run processes operations until ctx is cancelled. The diff broadcaster
// and the empty-room reaper run for the same lifetime.
func (r *Registry) Run(ctx context.Context) error {
	r.lifetime = ctx
	defer close(r.stopped)

	go r.every(ctx, r.opts.DiffInterval, r.diffPass)
	go r.every(ctx, r.opts.ReapInterval, r.reapPass)

	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-r.ops:
			r.run(op)
		}
	}
}

func (r *Registry) run(op func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("registry operation panicked")
		}
	}()
	op()
}

// do runs fn on the loop and waits for it to finish.
func (r *Registry) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case r.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stopped:
		return ErrStopped
	}
	<-done
	return nil
}

// call runs h on the loop, turning a panic into an internal error.
func (r *Registry) call(ctx context.Context, h func() Result) Result {
	var res Result
	err := r.do(ctx, func() {
		defer func() {
			if p := recover(); p != nil {
				res = Fail(fmt.Errorf("handler panic: %v", p))
			}
		}()
		res = h()
	})
	if err != nil {
		return Fail(err)
	}
	return res
}

// Actions returns the action table keyed by wire name.
func (r *Registry) Actions() map[string]Action {
	out := make(map[string]Action, len(r.handlers))
	for name, h := range r.handlers {
		out[name] = func(ctx context.Context, c *Client, params json.RawMessage) Result {
			return r.call(ctx, func() Result { return h(c, params) })
		}
	}
	return out
}

// Connect indexes a new connection under its room, creating the room
// on first sight.
func (r *Registry) Connect(ctx context.Context, c *Client, params ConnectParams) error {
	if params.RoomID == "" {
		return ErrInvalidParams
	}
	return r.do(ctx, func() { r.connect(c, params) })
}

// Close removes the connection's member and indexes.
func (r *Registry) Close(ctx context.Context, c *Client) error {
	return r.do(ctx, func() { r.close(c) })
}

// Stats reports the worker's load for the supervisor.
func (r *Registry) Stats(ctx context.Context) (ipc.Statistics, error) {
	var st ipc.Statistics
	err := r.do(ctx, func() { st = r.stats() })
	return st, err
}

func (r *Registry) connect(c *Client, params ConnectParams) {
	room, ok := r.rooms[params.RoomID]
	if !ok {
		room = NewRoom(params.RoomID)
		r.rooms[params.RoomID] = room
	}
	room.connect(c.ID)
	r.byClient[c.ID] = room
}

func (r *Registry) close(c *Client) {
	room, ok := r.byClient[c.ID]
	if !ok {
		return
	}
	delete(r.byClient, c.ID)
	room.forget(c.ID)

	if u, ok := room.remove(c.ID); ok && u.Profile.ID != GuestID {
		room.markLeft(u.Profile.ID)
	}

	if room.Empty() {
		r.dropRoom(room)
	}
}

func (r *Registry) stats() ipc.Statistics {
	st := ipc.Statistics{RoomIDs: make([]string, 0, len(r.rooms))}
	for id, room := range r.rooms {
		st.RoomIDs = append(st.RoomIDs, id)
		st.NumberOfUsers += room.Len()
	}
	return st
}

// dropRoom deletes the room and every connection still indexed to it.
func (r *Registry) dropRoom(room *Room) {
	if cur, ok := r.rooms[room.ID]; !ok || cur != room {
		return
	}
	delete(r.rooms, room.ID)
	for _, cid := range room.clientIDs {
		if r.byClient[cid] == room {
			delete(r.byClient, cid)
		}
	}
	r.log.Info().Str("room", room.ID).Msg("removed room")
}

// member resolves the caller's room and user, or fails with ErrAuth.
func (r *Registry) member(c *Client) (*Room, *User, error) {
	room, ok := r.byClient[c.ID]
	if !ok {
		return nil, nil, ErrAuth
	}
	u, ok := room.Member(c.ID)
	if !ok {
		return nil, nil, ErrAuth
	}
	return room, u, nil
}

// room looks up a room by id on the loop.
func (r *Registry) room(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}
