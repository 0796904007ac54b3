package app

import (
	"context"
	"fmt"
	"io"
	"net"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/streamchat/internal/config"
	"github.com/vovakirdan/streamchat/internal/ipc"
)

func TestWorkerFollowsControlLink(t *testing.T) {
	toWorkerR, toWorkerW := io.Pipe()
	fromWorkerR, fromWorkerW := io.Pipe()
	parent := ipc.NewLink(fromWorkerR, toWorkerW)

	cfg := config.Default()
	cfg.ShutdownTimeout = time.Second
	logger := zerolog.Nop()
	worker, err := NewWorker(cfg, ipc.NewLink(toWorkerR, fromWorkerW), &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Port 0 lets the kernel pick a free port.
	require.NoError(t, parent.Send(ipc.InitWorker(0)))
	msg, err := parent.Receive()
	require.NoError(t, err)
	require.Equal(t, ipc.EventWorkerListening, msg.Event)

	addr, err := worker.Addr(ctx)
	require.NoError(t, err)
	port := addr.(*net.TCPAddr).Port

	resp, err := stdhttp.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))

	require.NoError(t, parent.Send(ipc.RequestStatistics()))
	msg, err = parent.Receive()
	require.NoError(t, err)
	require.Equal(t, ipc.EventRespondStatistics, msg.Event)
	require.NotNil(t, msg.Data)
	require.Zero(t, msg.Data.NumberOfUsers)
	require.Empty(t, msg.Data.RoomIDs)

	// The worker exits once the supervisor's end goes away.
	require.NoError(t, toWorkerW.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("worker did not exit after the control link closed")
	}
}
