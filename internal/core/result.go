package core

import "context"

type resultKind int

const (
	resultNone resultKind = iota
	resultValue
	resultPending
)

// Result is what an action produces: no reply, a settled reply, or a
// reply that settles later.
type Result struct {
	kind    resultKind
	data    any
	err     error
	pending <-chan Result
}

// NoReply is a result that sends nothing back.
func NoReply() Result {
	return Result{kind: resultNone}
}

// Reply is a successful result carrying data.
func Reply(data any) Result {
	return Result{kind: resultValue, data: data}
}

// Fail is a result carrying an error.
func Fail(err error) Result {
	return Result{kind: resultValue, err: err}
}

// Pending is a result settled by the first value received from ch.
func Pending(ch <-chan Result) Result {
	return Result{kind: resultPending, pending: ch}
}

// HasReply reports whether a reply frame must be written.
func (r Result) HasReply() bool {
	return r.kind != resultNone
}

// IsPending reports whether the result has not settled yet.
func (r Result) IsPending() bool {
	return r.kind == resultPending
}

// Data returns the reply payload.
func (r Result) Data() any {
	return r.data
}

// Err returns the reply error.
func (r Result) Err() error {
	return r.err
}

// Await blocks until a pending result settles. Settled results are
// returned unchanged.
func (r Result) Await(ctx context.Context) Result {
	for r.kind == resultPending {
		select {
		case next, ok := <-r.pending:
			if !ok {
				return Fail(ErrStopped)
			}
			r = next
		case <-ctx.Done():
			return Fail(ctx.Err())
		}
	}
	return r
}
