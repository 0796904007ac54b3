// Package ipc defines the supervisor<->worker control messages and the
// CBOR stream link that carries them. Both the supervisor and the worker
// import this package so the wire types are defined once.
package ipc

// Control events exchanged over the link.
const (
	// EventInitWorker tells a freshly spawned worker which port it owns.
	EventInitWorker = "init-worker"
	// EventWorkerListening reports that the worker accepted its port.
	EventWorkerListening = "worker-listening"
	// EventRequestStatistics asks a worker for a statistics snapshot.
	EventRequestStatistics = "request-worker-statistics"
	// EventRespondStatistics carries the worker's statistics snapshot.
	EventRespondStatistics = "respond-worker-statistics"
)

// Message is the envelope for every control event.
type Message struct {
	Event string      `cbor:"event"`
	Port  int         `cbor:"port,omitempty"`
	Data  *Statistics `cbor:"data,omitempty"`
}

// Statistics is the load report a worker sends on request.
type Statistics struct {
	NumberOfUsers int      `cbor:"numberOfUsers" json:"numberOfUsers"`
	RoomIDs       []string `cbor:"roomIds" json:"roomIds"`
}

// InitWorker builds the init-worker message for port.
func InitWorker(port int) Message {
	return Message{Event: EventInitWorker, Port: port}
}

// WorkerListening builds the worker-listening message.
func WorkerListening() Message {
	return Message{Event: EventWorkerListening}
}

// RequestStatistics builds the request-worker-statistics message.
func RequestStatistics() Message {
	return Message{Event: EventRequestStatistics}
}

// RespondStatistics wraps stats in a respond-worker-statistics message.
func RespondStatistics(stats Statistics) Message {
	return Message{Event: EventRespondStatistics, Data: &stats}
}
