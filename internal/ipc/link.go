package ipc

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so identical messages
// produce identical bytes on both sides of the link.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ipc: CBOR encoder initialization failed: " + err.Error())
	}

	// Unknown fields are ignored so either side can add events first.
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ipc: CBOR decoder initialization failed: " + err.Error())
	}
}

// Link is one end of a bidirectional control channel. Send is safe for
// concurrent use; Receive must be called from a single goroutine.
type Link struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	dec    *cbor.Decoder
	closer []io.Closer
}

// NewLink wraps a reader and writer. Either may also implement io.Closer,
// in which case Close releases it.
func NewLink(r io.Reader, w io.Writer) *Link {
	l := &Link{
		enc: encMode.NewEncoder(w),
		dec: decMode.NewDecoder(r),
	}
	if c, ok := r.(io.Closer); ok {
		l.closer = append(l.closer, c)
	}
	if c, ok := w.(io.Closer); ok {
		l.closer = append(l.closer, c)
	}
	return l
}

// Send encodes msg onto the link.
func (l *Link) Send(msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Event, err)
	}
	return nil
}

// Receive blocks for the next message. io.EOF means the peer went away.
func (l *Link) Receive() (Message, error) {
	var msg Message
	if err := l.dec.Decode(&msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Close closes the underlying streams.
func (l *Link) Close() error {
	var first error
	for _, c := range l.closer {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// File descriptors on which a spawned worker finds its control link.
const (
	ChildReadFD  = 3
	ChildWriteFD = 4
)

// ChildLink opens the worker end of the control link inherited from the supervisor.
func ChildLink() (*Link, error) {
	in := os.NewFile(ChildReadFD, "control-in")
	out := os.NewFile(ChildWriteFD, "control-out")
	if in == nil || out == nil {
		return nil, fmt.Errorf("control link descriptors %d/%d not inherited", ChildReadFD, ChildWriteFD)
	}
	return NewLink(in, out), nil
}
