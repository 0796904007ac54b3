// Package supervisor keeps a fixed pool of worker processes alive, one
// per port slot, and bridges their control messages to an Observer.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/ipc"
)

// State is the lifecycle position of a worker slot.
type State int

const (
	StateSpawning State = iota
	StateOnline
	StateListening
	StateDied
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateOnline:
		return "online"
	case StateListening:
		return "listening"
	case StateDied:
		return "died"
	default:
		return "unknown"
	}
}

// Observer receives worker lifecycle and statistics events.
type Observer interface {
	WorkerListening(pid, port int)
	WorkerStatistics(pid int, stats ipc.Statistics)
	WorkerDied(pid int)
}

// Options configures a Supervisor.
type Options struct {
	BasePort      int
	Workers       int
	StatsInterval time.Duration
	RespawnDelay  time.Duration
	StopTimeout   time.Duration
}

// Slot describes one port slot at a point in time.
type Slot struct {
	Port  int
	Pid   int
	State State
}

type slot struct {
	port  int
	proc  Process
	state State
}

// Supervisor spawns Options.Workers processes bound to BasePort+i and
// respawns any that exit on the same port.
type Supervisor struct {
	spawner  Spawner
	observer Observer
	clock    clock.Clock
	opts     Options
	log      *zerolog.Logger

	mu    sync.Mutex
	slots map[int]*slot
}

// New builds a supervisor.
func New(spawner Spawner, observer Observer, clk clock.Clock, opts Options, logger *zerolog.Logger) *Supervisor {
	return &Supervisor{
		spawner:  spawner,
		observer: observer,
		clock:    clk,
		opts:     opts,
		log:      logger,
		slots:    make(map[int]*slot),
	}
}

// Run blocks until ctx is cancelled, then stops every worker.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := range s.opts.Workers {
		port := s.opts.BasePort + i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runSlot(ctx, port)
		}()
	}

	go s.pollStatistics(ctx)

	<-ctx.Done()
	s.stopAll()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-s.clock.After(s.opts.StopTimeout):
		s.log.Warn().Msg("workers did not stop in time, killing")
		s.killAll()
		<-done
	}
	return nil
}

// Slots returns the current slot table ordered by port.
func (s *Supervisor) Slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Slot, 0, len(s.slots))
	for i := range s.opts.Workers {
		sl, ok := s.slots[s.opts.BasePort+i]
		if !ok {
			continue
		}
		entry := Slot{Port: sl.port, State: sl.state}
		if sl.proc != nil {
			entry.Pid = sl.proc.Pid()
		}
		out = append(out, entry)
	}
	return out
}

func (s *Supervisor) runSlot(ctx context.Context, port int) {
	for ctx.Err() == nil {
		s.setSlot(port, nil, StateSpawning)

		proc, err := s.spawner.Spawn()
		if err != nil {
			s.log.Error().Err(err).Int("port", port).Msg("spawn worker")
			if !s.sleep(ctx, s.opts.RespawnDelay) {
				return
			}
			continue
		}

		pid := proc.Pid()
		s.setSlot(port, proc, StateOnline)
		s.log.Info().Int("worker_pid", pid).Int("port", port).Msg("worker spawned")
		if ctx.Err() != nil {
			// Shutdown raced the spawn; stopAll has already run.
			_ = proc.Stop()
		}

		if err := proc.Send(ipc.InitWorker(port)); err != nil {
			s.log.Error().Err(err).Int("worker_pid", pid).Msg("send init-worker")
		}

		pumpDone := make(chan struct{})
		go func() {
			defer close(pumpDone)
			s.pump(proc, port)
		}()

		waitErr := proc.Wait()
		<-pumpDone
		s.setSlot(port, proc, StateDied)
		s.log.Warn().Err(waitErr).Int("worker_pid", pid).Int("port", port).Msg("worker died")
		s.observer.WorkerDied(pid)

		if !s.sleep(ctx, s.opts.RespawnDelay) {
			return
		}
	}
}

// pump forwards control messages from one worker until its link closes.
func (s *Supervisor) pump(proc Process, port int) {
	pid := proc.Pid()
	for {
		msg, err := proc.Receive()
		if err != nil {
			return
		}
		switch msg.Event {
		case ipc.EventWorkerListening:
			s.setState(port, proc, StateListening)
			s.log.Info().Int("worker_pid", pid).Int("port", port).Msg("worker listening")
			s.observer.WorkerListening(pid, port)
		case ipc.EventRespondStatistics:
			if msg.Data != nil {
				s.observer.WorkerStatistics(pid, *msg.Data)
			}
		default:
			s.log.Debug().Str("event", msg.Event).Int("worker_pid", pid).Msg("unknown control event")
		}
	}
}

// pollStatistics asks every live worker for statistics. The next poll
// is scheduled only after the current one has been sent.
func (s *Supervisor) pollStatistics(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.opts.StatsInterval):
		}

		for _, proc := range s.live() {
			if err := proc.Send(ipc.RequestStatistics()); err != nil {
				s.log.Debug().Err(err).Int("worker_pid", proc.Pid()).Msg("request statistics")
			}
		}
	}
}

func (s *Supervisor) live() []Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	procs := make([]Process, 0, len(s.slots))
	for _, sl := range s.slots {
		if sl.proc != nil && (sl.state == StateOnline || sl.state == StateListening) {
			procs = append(procs, sl.proc)
		}
	}
	return procs
}

func (s *Supervisor) setSlot(port int, proc Process, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[port] = &slot{port: port, proc: proc, state: state}
}

// setState moves the slot only if it still holds proc.
func (s *Supervisor) setState(port int, proc Process, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[port]; ok && sl.proc == proc {
		sl.state = state
	}
}

func (s *Supervisor) stopAll() {
	for _, proc := range s.live() {
		if err := proc.Stop(); err != nil {
			s.log.Debug().Err(err).Int("worker_pid", proc.Pid()).Msg("stop worker")
		}
	}
}

func (s *Supervisor) killAll() {
	for _, proc := range s.live() {
		if err := proc.Kill(); err != nil {
			s.log.Debug().Err(err).Int("worker_pid", proc.Pid()).Msg("kill worker")
		}
	}
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}
