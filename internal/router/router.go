// Package router pins every room to one worker port for the room's
// lifetime. Workers keep room state only in their own memory, so all
// clients of a room must reach the same worker.
package router

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/streamchat/internal/ipc"
)

// ErrNoWorkers is returned when a room must be placed but no worker has reported listening yet.
var ErrNoWorkers = errors.New("no workers available")

// Decision is the answer to a room lookup.
type Decision struct {
	Port     int
	Redirect bool
}

// WorkerStats is the latest snapshot a worker process reported.
type WorkerStats struct {
	Pid           int      `json:"workerPid"`
	Port          int      `json:"port"`
	NumberOfUsers int      `json:"numberOfUsers"`
	RoomIDs       []string `json:"roomIds"`
}

type assignment struct {
	port int
	// graceUntil is zero once the assignment left its idle grace window.
	graceUntil time.Time
}

// Router owns the roomId->port table and the per-worker statistics.
type Router struct {
	mu        sync.Mutex
	clock     clock.Clock
	grace     time.Duration
	ports     map[int]int // pid -> port
	stats     map[int]*WorkerStats
	rooms     map[string]*assignment
	prevUsers int
	log       *zerolog.Logger
}

// New creates a router with the given idle grace window.
func New(clk clock.Clock, grace time.Duration, logger *zerolog.Logger) *Router {
	return &Router{
		clock: clk,
		grace: grace,
		ports: make(map[int]int),
		stats: make(map[int]*WorkerStats),
		rooms: make(map[string]*assignment),
		log:   logger,
	}
}

// Lookup resolves roomID to a worker port. Without mayCreate an unmapped
// room yields a redirect and allocates nothing.
func (r *Router) Lookup(roomID string, mayCreate bool) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.rooms[roomID]; ok {
		return Decision{Port: a.port}, nil
	}
	if !mayCreate {
		return Decision{Redirect: true}, nil
	}

	target := r.leastLoaded()
	if target == nil {
		return Decision{}, ErrNoWorkers
	}
	// Count the new room's first viewer before the next report arrives.
	target.NumberOfUsers++
	r.rooms[roomID] = &assignment{
		port:       target.Port,
		graceUntil: r.clock.Now().Add(r.grace),
	}
	r.log.Info().Str("room_id", roomID).Int("port", target.Port).Msg("room mapped to port")
	return Decision{Port: target.Port}, nil
}

func (r *Router) leastLoaded() *WorkerStats {
	var best *WorkerStats
	for _, ws := range r.stats {
		if best == nil || ws.NumberOfUsers < best.NumberOfUsers ||
			(ws.NumberOfUsers == best.NumberOfUsers && ws.Port < best.Port) {
			best = ws
		}
	}
	return best
}

// WorkerListening registers a (re)spawned worker with empty statistics.
func (r *Router) WorkerListening(pid, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ports[pid] = port
	r.stats[pid] = &WorkerStats{Pid: pid, Port: port, RoomIDs: []string{}}
	r.log.Info().Int("worker_pid", pid).Int("port", port).Msg("worker registered")
}

// WorkerStatistics replaces the worker's snapshot and reclaims idle
// assignments that point at its port.
func (r *Router) WorkerStatistics(pid int, report ipc.Statistics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	port, ok := r.ports[pid]
	if !ok {
		r.log.Debug().Int("worker_pid", pid).Msg("statistics from unregistered worker ignored")
		return
	}
	r.stats[pid] = &WorkerStats{
		Pid:           pid,
		Port:          port,
		NumberOfUsers: report.NumberOfUsers,
		RoomIDs:       append([]string(nil), report.RoomIDs...),
	}

	total := 0
	for _, ws := range r.stats {
		total += ws.NumberOfUsers
	}
	if total != r.prevUsers {
		r.prevUsers = total
		r.log.Info().Int("users", total).Msg("users online")
	}

	r.reclaim(port)
}

// reclaim drops assignments on port that no worker reports as active.
// Assignments still inside their grace window are skipped this round;
// once the window has passed they are evaluated in the same round.
func (r *Router) reclaim(port int) {
	now := r.clock.Now()
	for roomID, a := range r.rooms {
		if a.port != port {
			continue
		}
		if !a.graceUntil.IsZero() {
			if !now.After(a.graceUntil) {
				continue
			}
			a.graceUntil = time.Time{}
		}
		if r.reportedActive(roomID) {
			continue
		}
		delete(r.rooms, roomID)
		r.log.Info().Str("room_id", roomID).Int("port", port).Msg("cleaned room")
	}
}

func (r *Router) reportedActive(roomID string) bool {
	for _, ws := range r.stats {
		for _, id := range ws.RoomIDs {
			if id == roomID {
				return true
			}
		}
	}
	return false
}

// WorkerDied forgets the worker and every assignment pointing at its port.
func (r *Router) WorkerDied(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	port, ok := r.ports[pid]
	delete(r.ports, pid)
	delete(r.stats, pid)
	if !ok {
		return
	}
	for roomID, a := range r.rooms {
		if a.port == port {
			delete(r.rooms, roomID)
		}
	}
	r.log.Info().Int("worker_pid", pid).Int("port", port).Msg("worker died, routes purged")
}

// Snapshot is a copy of the router state for observability.
type Snapshot struct {
	NumberOfUsers int            `json:"numberOfUsers"`
	Workers       []WorkerStats  `json:"workers"`
	Rooms         map[string]int `json:"rooms"`
}

// Snapshot returns a copy of the current statistics and assignments.
func (r *Router) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Workers: make([]WorkerStats, 0, len(r.stats)),
		Rooms:   make(map[string]int, len(r.rooms)),
	}
	for _, ws := range r.stats {
		cp := *ws
		cp.RoomIDs = append([]string(nil), ws.RoomIDs...)
		snap.Workers = append(snap.Workers, cp)
		snap.NumberOfUsers += ws.NumberOfUsers
	}
	sort.Slice(snap.Workers, func(i, j int) bool { return snap.Workers[i].Port < snap.Workers[j].Port })
	for roomID, a := range r.rooms {
		snap.Rooms[roomID] = a.port
	}
	return snap
}
