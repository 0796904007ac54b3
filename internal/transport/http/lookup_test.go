package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/config"
	"github.com/vovakirdan/streamchat/internal/ipc"
	"github.com/vovakirdan/streamchat/internal/router"
)

func newLookupServer(t *testing.T, cfg config.Config) (http.Handler, *router.Router) {
	t.Helper()

	logger := zerolog.Nop()
	rt := router.New(clock.NewMock(), 10*time.Second, &logger)
	server, err := NewLookupServer(rt, cfg, &logger)
	if err != nil {
		t.Fatalf("new lookup server: %v", err)
	}
	return server.Handler, rt
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestLookupRedirectsUnmappedRoom(t *testing.T) {
	h, rt := newLookupServer(t, config.Default())
	rt.WorkerListening(100, 9000)

	resp := get(t, h, "/?roomId=r1")
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	if got := resp.Body.String(); got != `{"redirect":true}` {
		t.Fatalf("unexpected body: %s", got)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" || resp.Header().Get("Cache-Control") != "no-cache" {
		t.Fatalf("missing lookup headers: %v", resp.Header())
	}
	if len(rt.Snapshot().Rooms) != 0 {
		t.Fatal("redirect must not allocate an assignment")
	}
}

func TestLookupCreateIsIdempotent(t *testing.T) {
	h, rt := newLookupServer(t, config.Default())
	rt.WorkerListening(100, 9000)
	rt.WorkerListening(101, 9001)

	ports := map[int]bool{}
	for _, target := range []string{"/create?roomId=r1", "/?roomId=r1&create=1", "/?roomId=r1", "/ws/create/x?roomId=r1"} {
		resp := get(t, h, target)
		var body PortResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: unmarshal: %v", target, err)
		}
		if body.Port == 0 {
			t.Fatalf("%s: expected a port, got %s", target, resp.Body.String())
		}
		ports[body.Port] = true
	}
	if len(ports) != 1 {
		t.Fatalf("room moved between workers: %v", ports)
	}
}

func TestLookupErrors(t *testing.T) {
	h, _ := newLookupServer(t, config.Default())

	if resp := get(t, h, "/create"); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing roomId: unexpected status %d", resp.Code)
	}
	if resp := get(t, h, "/create?roomId=r1"); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("no workers: unexpected status %d", resp.Code)
	}
}

func TestPolicyDocument(t *testing.T) {
	h, _ := newLookupServer(t, config.Default())

	resp := get(t, h, "/crossdomain.xml")
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if resp.Body.String() != DefaultPolicy {
		t.Fatalf("unexpected policy: %s", resp.Body.String())
	}

	path := filepath.Join(t.TempDir(), "crossdomain.xml")
	if err := os.WriteFile(path, []byte("<cross-domain-policy/>"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	cfg := config.Default()
	cfg.PolicyFile = path
	h, _ = newLookupServer(t, cfg)
	if got := get(t, h, "/crossdomain.xml").Body.String(); got != "<cross-domain-policy/>" {
		t.Fatalf("unexpected custom policy: %s", got)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h, rt := newLookupServer(t, config.Default())
	rt.WorkerListening(100, 9000)
	rt.WorkerStatistics(100, ipc.Statistics{NumberOfUsers: 3, RoomIDs: []string{"r1"}})
	if _, err := rt.Lookup("r1", true); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	var snap router.Snapshot
	if err := json.Unmarshal(get(t, h, "/stats").Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if snap.NumberOfUsers != 4 || snap.Rooms["r1"] != 9000 {
		t.Fatalf("unexpected stats: %+v", snap)
	}
}
