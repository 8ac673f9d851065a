package format

import "github.com/daedaluz/bin2carray/internal/ioerr"

// Sink is anything a compiled Program can emit bytes into: either a
// memory buffer or a streamed destination.
type Sink interface {
	// Write appends p. It returns the number of bytes accepted, or -1
	// once the sink has entered a sticky error state (stream sinks
	// only; memory sinks never fail).
	Write(p []byte) (int, error)
	// WriteNul writes a single NUL at the current position without
	// advancing it. Only meaningful for memory sinks producing a
	// C-string-style buffer; stream sinks treat it as an ordinary byte.
	WriteNul() error
}

// MemSink is a fixed memory buffer sink; Write advances pos on every
// call and never fails (the caller is responsible for sizing Buf).
type MemSink struct {
	Buf []byte
	pos int
}

func NewMemSink(buf []byte) *MemSink {
	return &MemSink{Buf: buf}
}

func (m *MemSink) Write(p []byte) (int, error) {
	n := copy(m.Buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *MemSink) WriteNul() error {
	if m.pos >= len(m.Buf) {
		return ioerr.New("memory sink exhausted")
	}
	m.Buf[m.pos] = 0
	return nil
}

// Len reports how many bytes have been written so far.
func (m *MemSink) Len() int { return m.pos }

// StreamWriter is the subset of the async stdout stream the formatter
// needs, kept as an interface here so internal/format does not import
// internal/stream (which would create a dependency cycle with the
// transport engines that use both).
type StreamWriter interface {
	Write(p []byte) error
}

// StreamSink adapts a StreamWriter into a Sink. Once the underlying
// writer reports an error the sink becomes sticky-errored: subsequent
// writes no-op and return -1, matching spec's sink contract.
type StreamSink struct {
	w       StreamWriter
	errored bool
	err     error
}

func NewStreamSink(w StreamWriter) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Write(p []byte) (int, error) {
	if s.errored {
		return -1, s.err
	}
	if err := s.w.Write(p); err != nil {
		s.errored = true
		s.err = err
		return -1, err
	}
	return len(p), nil
}

func (s *StreamSink) WriteNul() error {
	_, err := s.Write([]byte{0})
	return err
}

// Err reports the sticky error, if any.
func (s *StreamSink) Err() error { return s.err }

// Emit executes program against sink, consuming one byte of args per
// Uint8Placeholder op in order. It returns the total number of bytes
// written to the sink. If writeNul is true and the whole program has
// been executed, a trailing NUL is written via Sink.WriteNul after the
// last op (without counting towards the returned total, since it does
// not advance a memory sink's position).
func Emit(program *Program, args []byte, sink Sink, writeNul bool) (int, error) {
	if len(args) < program.Placeholders {
		return 0, ioerr.New("too few arguments for format program")
	}
	total := 0
	argi := 0
	for _, op := range program.Ops {
		var n int
		var err error
		switch op.Kind {
		case OpText:
			n, err = sink.Write([]byte(op.Text))
		case OpUint8:
			n, err = sink.Write(decimalText(args[argi]))
			argi++
		}
		if err != nil || n < 0 {
			return total, err
		}
		total += n
	}
	if writeNul {
		if err := sink.WriteNul(); err != nil {
			return total, err
		}
	}
	return total, nil
}
