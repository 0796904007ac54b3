package core

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/streamchat/internal/tipengine"
)

const testSalt = "test-salt"

type fakeTips struct {
	mu         sync.Mutex
	balance    string
	balanceErr error
	sendErr    error
	gate       chan struct{}

	balanceCalls atomic.Int32
	sendCalls    atomic.Int32
}

func (f *fakeTips) FetchBalance(ctx context.Context, _ tipengine.BalanceRequest) ([]byte, error) {
	f.balanceCalls.Add(1)
	f.mu.Lock()
	gate, body, err := f.gate, f.balance, f.balanceErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte(body), err
}

func (f *fakeTips) SendTip(context.Context, tipengine.TipRequest) error {
	f.sendCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendErr
}

func newTestRegistry(t testing.TB, tips tipengine.Engine) *Registry {
	t.Helper()

	logger := zerolog.Nop()
	r := NewRegistry(Options{
		Salt:             testSalt,
		MaxMessageLength: 200,
		TipTimeout:       2 * time.Second,
	}, clock.NewMock(), tips, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func signedJoin(p Profile, muted string) json.RawMessage {
	params := JoinParams{
		ID:        Text(p.ID),
		Name:      Text(p.Name),
		Role:      Text(p.Role),
		RoleID:    Text(p.RoleID),
		Muted:     Text(muted),
		Gender:    Text(p.Gender),
		ImagePath: Text(p.ImagePath),
	}
	params.Sign(testSalt)
	raw, _ := json.Marshal(params)
	return raw
}

func profile(id, role string) Profile {
	return Profile{ID: id, Name: "user-" + id, Role: role, RoleID: "1", Gender: "f", ImagePath: "/img/" + id}
}

func mustParams(t testing.TB, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func act(t testing.TB, r *Registry, c *Client, action string, params json.RawMessage) Result {
	t.Helper()
	fn, ok := r.Actions()[action]
	require.True(t, ok, "action %q not registered", action)
	return fn(context.Background(), c, params)
}

func connect(t testing.TB, r *Registry, roomID, clientID string) *Client {
	t.Helper()
	c := NewClient(clientID)
	require.NoError(t, r.Connect(context.Background(), c, ConnectParams{RoomID: roomID}))
	return c
}

// joinAs connects a new client to roomID and joins it with p.
func joinAs(t testing.TB, r *Registry, roomID, clientID string, p Profile) *Client {
	t.Helper()
	c := connect(t, r, roomID, clientID)
	res := act(t, r, c, ActionJoin, signedJoin(p, "false"))
	require.True(t, res.HasReply())
	require.NoError(t, res.Err())
	return c
}

// onLoop runs fn on the registry loop.
func onLoop(t testing.TB, r *Registry, fn func()) {
	t.Helper()
	require.NoError(t, r.do(context.Background(), fn))
}

func mustNotification(t *testing.T, c *Client, name string) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == EventNotification && ev.Notification == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected notification %q not received by %s", name, c.ID)
			return nil
		}
	}
}

// noNotification asserts that name is not queued for c right now.
// Handlers notify synchronously, so queued events are already visible.
func noNotification(t *testing.T, c *Client, name string) {
	t.Helper()
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == EventNotification && ev.Notification == name {
				t.Fatalf("unexpected notification %q for %s", name, c.ID)
			}
		default:
			return
		}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Events():
		default:
			return
		}
	}
}
