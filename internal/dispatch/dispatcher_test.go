package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/streamchat/internal/core"
	"github.com/vovakirdan/streamchat/internal/proto"
)

type recordingLifecycle struct {
	connected []core.ConnectParams
	closed    []string
	err       error
}

func (l *recordingLifecycle) Connect(_ context.Context, _ *core.Client, p core.ConnectParams) error {
	l.connected = append(l.connected, p)
	return l.err
}

func (l *recordingLifecycle) Close(_ context.Context, c *core.Client) error {
	l.closed = append(l.closed, c.ID)
	return l.err
}

func newTestDispatcher(actions map[string]core.Action) (*Dispatcher, *recordingLifecycle) {
	logger := zerolog.Nop()
	lc := &recordingLifecycle{}
	return New(actions, lc, &logger), lc
}

func nextEvent(t *testing.T, c *core.Client) *core.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return nil
	}
}

func noEvent(t *testing.T, c *core.Client) {
	t.Helper()
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHandleParseError(t *testing.T) {
	d, _ := newTestDispatcher(nil)
	c := core.NewClient("c")

	d.Handle(context.Background(), c, []byte("{nope"))

	ev := nextEvent(t, c)
	require.Equal(t, core.EventReply, ev.Kind)
	require.Nil(t, ev.RequestUID)
	require.Equal(t, proto.Error{Msg: MsgParseError}, ev.Err)
}

func TestHandleValidationLastFailureWins(t *testing.T) {
	d, _ := newTestDispatcher(map[string]core.Action{
		"echo": func(context.Context, *core.Client, json.RawMessage) core.Result { return core.NoReply() },
	})

	tests := []struct {
		frame string
		want  string
	}{
		{`{}`, `action "" is to mapped`},
		{`{"action":"echo"}`, MsgNoRequestUID},
		{`{"action":"echo","requestUid":""}`, MsgNoRequestUID},
		{`{"action":"nope"}`, `action "nope" is to mapped`},
		{`{"action":"nope","requestUid":7}`, `action "nope" is to mapped`},
	}
	for _, tt := range tests {
		c := core.NewClient("c")
		d.Handle(context.Background(), c, []byte(tt.frame))
		ev := nextEvent(t, c)
		require.Equal(t, proto.Error{Msg: tt.want}, ev.Err, tt.frame)
	}

	c := core.NewClient("c")
	d.Handle(context.Background(), c, []byte(`{"action":"nope","requestUid":"r-1"}`))
	require.JSONEq(t, `"r-1"`, string(nextEvent(t, c).RequestUID))
}

func TestHandleResults(t *testing.T) {
	var gotParams json.RawMessage
	d, _ := newTestDispatcher(map[string]core.Action{
		"data": func(_ context.Context, _ *core.Client, p json.RawMessage) core.Result {
			gotParams = p
			return core.Reply(map[string]int{"n": 1})
		},
		"fail":   func(context.Context, *core.Client, json.RawMessage) core.Result { return core.Fail(core.ErrAuth) },
		"silent": func(context.Context, *core.Client, json.RawMessage) core.Result { return core.NoReply() },
		"broken": func(context.Context, *core.Client, json.RawMessage) core.Result { return core.Fail(errors.New("boom")) },
		"panics": func(context.Context, *core.Client, json.RawMessage) core.Result { panic("boom") },
	})
	c := core.NewClient("c")

	d.Handle(context.Background(), c, []byte(`{"action":"data","requestUid":1,"params":{"x":2}}`))
	ev := nextEvent(t, c)
	require.Equal(t, map[string]int{"n": 1}, ev.Data)
	require.Nil(t, ev.Err)
	require.JSONEq(t, `1`, string(ev.RequestUID))
	require.JSONEq(t, `{"x":2}`, string(gotParams))

	d.Handle(context.Background(), c, []byte(`{"action":"fail","requestUid":2}`))
	require.Equal(t, core.ErrAuth, nextEvent(t, c).Err)

	d.Handle(context.Background(), c, []byte(`{"action":"silent","requestUid":3}`))
	noEvent(t, c)

	d.Handle(context.Background(), c, []byte(`{"action":"broken","requestUid":4}`))
	require.Equal(t, MsgInternalError, nextEvent(t, c).Err)

	d.Handle(context.Background(), c, []byte(`{"action":"panics","requestUid":5}`))
	require.Equal(t, MsgInternalError, nextEvent(t, c).Err)
}

func TestHandlePendingResult(t *testing.T) {
	settle := make(chan core.Result, 1)
	d, _ := newTestDispatcher(map[string]core.Action{
		"slow": func(context.Context, *core.Client, json.RawMessage) core.Result { return core.Pending(settle) },
	})
	c := core.NewClient("c")

	ctx, cancel := context.WithCancel(context.Background())
	d.Handle(ctx, c, []byte(`{"action":"slow","requestUid":"t"}`))
	noEvent(t, c)

	// The connection context ending does not abandon the pending reply.
	cancel()
	settle <- core.Reply("done")

	ev := nextEvent(t, c)
	require.Equal(t, "done", ev.Data)
	require.JSONEq(t, `"t"`, string(ev.RequestUID))
}

func TestConnectAndClose(t *testing.T) {
	d, lc := newTestDispatcher(nil)
	c := core.NewClient("c")

	d.Connect(context.Background(), c, url.Values{"roomId": {"r1"}})
	d.Close(context.Background(), c)

	require.Equal(t, []core.ConnectParams{{RoomID: "r1"}}, lc.connected)
	require.Equal(t, []string{"c"}, lc.closed)

	lc.err = errors.New("ignored")
	d.Connect(context.Background(), c, url.Values{})
	noEvent(t, c)
}
