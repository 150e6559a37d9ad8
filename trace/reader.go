package trace

import (
	"errors"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"vcmailbox/mailbox"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	Session   string
	Direction mailbox.Direction
	Channel   *mailbox.Channel
	ErrorOnly bool
}

func (f *Filter) matches(e Event) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if f.Direction != 0 && e.Direction != f.Direction {
		return false
	}
	if f.Channel != nil && e.Channel != *f.Channel {
		return false
	}
	if f.ErrorOnly && e.Error == "" {
		return false
	}
	return true
}

// Reader streams events from a trace.
type Reader struct {
	r      io.Reader
	dec    *cbor.Decoder
	filter Filter
}

func NewReader(r io.Reader, filter Filter) *Reader {
	return &Reader{r: r, dec: newDecoder(r), filter: filter}
}

// Next returns the next matching event, or io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		var e Event
		if err := r.dec.Decode(&e); err != nil {
			return Event{}, err
		}
		if r.filter.matches(e) {
			return e, nil
		}
	}
}

// ReadFile returns every matching event in the trace file at path.
func ReadFile(path string, filter Filter) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Event
	r := NewReader(f, filter)
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}
