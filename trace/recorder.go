// Package trace records channel traffic to a compact binary log for
// offline inspection and replay.
//
// Each record is a CBOR map with integer keys, framed by a big-endian
// uint32 length prefix, so logs stream and truncate cleanly.
package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction says which way a recorded message crossed the boundary.
type Direction uint8

const (
	// Inbound messages travel from the UI side to the host.
	Inbound Direction = 1
	// Outbound messages travel from the host to the UI side.
	Outbound Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Record is one captured message.
type Record struct {
	Seq       uint64    `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Channel   string    `cbor:"3,keyasint"`
	Payload   []byte    `cbor:"4,keyasint,omitempty"`
	UnixMicro int64     `cbor:"5,keyasint"`
}

// Time returns the capture time.
func (r Record) Time() time.Time {
	return time.UnixMicro(r.UnixMicro)
}

// maxRecordSize bounds a single framed record on read, so a corrupt
// length prefix cannot trigger a huge allocation.
const maxRecordSize = 64 << 20

// Recorder writes records to a stream. It implements the engine's
// message-observer interface and is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	seq    uint64
	closed bool

	// set when the recorder owns the underlying file
	file *os.File

	now func() time.Time
}

// NewRecorder builds a recorder over w. The caller keeps ownership of w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w, now: time.Now}
}

// NewFileRecorder creates path (truncating an existing file) and records
// into it. Close flushes and closes the file.
func NewFileRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file %s: %w", path, err)
	}
	r := NewRecorder(f)
	r.file = f
	return r, nil
}

// ObserveInbound records a message arriving from the UI side.
func (r *Recorder) ObserveInbound(channel string, payload []byte) {
	r.record(Inbound, channel, payload)
}

// ObserveOutbound records a message leaving the host.
func (r *Recorder) ObserveOutbound(channel string, payload []byte) {
	r.record(Outbound, channel, payload)
}

func (r *Recorder) record(direction Direction, channel string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.seq++
	rec := Record{
		Seq:       r.seq,
		Direction: direction,
		Channel:   channel,
		Payload:   payload,
		UnixMicro: r.now().UnixMicro(),
	}
	if err := writeFramed(r.w, rec); err != nil {
		// Recording is best effort; dispatch must not fail because the
		// trace sink did. Log once, then go quiet.
		slog.Warn("trace recording stopped after write error", "channel", channel, "error", err)
		r.closed = true
	}
}

// Close stops recording; further observations are dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.file != nil {
		f := r.file
		r.file = nil
		return f.Close()
	}
	return nil
}

func writeFramed(w io.Writer, rec Record) error {
	body, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadRecord reads the next framed record from r. It returns io.EOF at a
// clean end of stream and io.ErrUnexpectedEOF on a torn record.
func ReadRecord(r io.Reader) (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > maxRecordSize {
		return Record{}, fmt.Errorf("trace record size %d exceeds limit", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	var rec Record
	if err := cbor.Unmarshal(body, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode trace record: %w", err)
	}
	return rec, nil
}

// ReadAll reads records until end of stream.
func ReadAll(r io.Reader) ([]Record, error) {
	var records []Record
	for {
		rec, err := ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
