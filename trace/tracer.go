package trace

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"vcmailbox/mailbox"
)

// Tracer writes mailbox exchanges to w as CBOR events. It is safe for
// concurrent use, although a Mailbox only calls it under its own lock.
type Tracer struct {
	mu      sync.Mutex
	closer  io.Closer
	enc     *cbor.Encoder
	session string
	seq     uint64
	now     func() time.Time
	closed  bool
}

// New returns a tracer writing to w with a fresh session id.
func New(w io.Writer) *Tracer {
	return &Tracer{
		enc:     newEncoder(w),
		session: uuid.NewString(),
		now:     time.Now,
	}
}

// Create appends to the trace file at path, creating it if needed.
func Create(path string) (*Tracer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	t := New(f)
	t.closer = f
	return t, nil
}

// Session identifies this tracer's events in a shared file.
func (t *Tracer) Session() string { return t.session }

// Trace implements mailbox.Tracer. Encoding errors are dropped; tracing
// never fails an exchange.
func (t *Tracer) Trace(dir mailbox.Direction, ch mailbox.Channel, bus uint32, envelope []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.seq++
	e := Event{
		Timestamp: t.now(),
		Session:   t.session,
		Seq:       t.seq,
		Direction: dir,
		Channel:   ch,
		Bus:       bus,
		Envelope:  append([]byte(nil), envelope...),
	}
	if err != nil {
		e.Error = err.Error()
	}
	_ = t.enc.Encode(e)
}

// Close closes the underlying file for tracers made by Create. Later
// events are ignored.
func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

var _ mailbox.Tracer = (*Tracer)(nil)
