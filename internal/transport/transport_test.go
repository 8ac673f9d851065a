package transport

import (
	"bytes"
	"os"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct{ n, m, want int }{
		{0, 4096, 0},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		got := roundUp(c.n, c.m)
		assert(t, got == c.want, "roundUp(%d,%d)=%d want %d", c.n, c.m, got, c.want)
	}
}

func TestEmitMmapBytesMatchesChunkedFraming(t *testing.T) {
	data := []byte{10, 20, 30, 40, 50}
	sink := newMemSinkForTest(64)
	err := emitMmapBytes(data, sink, nil)
	assert(t, err == nil, "emit failed: %v", err)
	got := string(sink.buf[:sink.pos])
	want := "10, 20, 30, 40, 50"
	assert(t, got == want, "got %q want %q", got, want)
}

func TestEmitMmapBytesEmptyIsNoop(t *testing.T) {
	sink := newMemSinkForTest(8)
	err := emitMmapBytes(nil, sink, nil)
	assert(t, err == nil, "emit failed: %v", err)
	assert(t, sink.pos == 0, "expected no writes, got %d bytes", sink.pos)
}

func TestEmitMmapBytesFiresOnFirstByteOnlyWhenNonEmpty(t *testing.T) {
	calls := 0
	onFirst := func() error { calls++; return nil }

	sink := newMemSinkForTest(8)
	assert(t, emitMmapBytes(nil, sink, onFirst) == nil, "emit failed")
	assert(t, calls == 0, "onFirstByte must not fire for empty input, fired %d times", calls)

	sink = newMemSinkForTest(64)
	assert(t, emitMmapBytes([]byte{1, 2, 3}, sink, onFirst) == nil, "emit failed")
	assert(t, calls == 1, "onFirstByte must fire exactly once, fired %d times", calls)
}

// memSinkForTest is a minimal format.Sink so emitMmapBytes can be
// exercised without pulling in a live pipe.
type memSinkForTest struct {
	buf []byte
	pos int
}

func newMemSinkForTest(n int) *memSinkForTest {
	return &memSinkForTest{buf: make([]byte, n)}
}

func (m *memSinkForTest) Write(p []byte) (int, error) {
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memSinkForTest) WriteNul() error { return nil }

// TestRunOverPipesProducesExpectedBytes drives the selector and
// whichever engine it picks for a pipe/pipe pair (READ_INPUT_VMSPLICE_OUTPUT
// on Linux when F_GETPIPE_SZ succeeds, READ_INPUT_BUFFERED_OUTPUT
// otherwise) over a real pipe-backed stdin/stdout pair.
func TestRunOverPipesProducesExpectedBytes(t *testing.T) {
	inR, inW, err := os.Pipe()
	assert(t, err == nil, "stdin pipe: %v", err)
	outR, outW, err := os.Pipe()
	assert(t, err == nil, "stdout pipe: %v", err)

	input := []byte{1, 2, 3, 4, 5}
	go func() {
		_, _ = inW.Write(input)
		_ = inW.Close()
	}()

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = out.ReadFrom(outR)
		close(done)
	}()

	firstByteCalls := 0
	total, err := Run(int(inR.Fd()), int(outW.Fd()), func() error { firstByteCalls++; return nil }, func(string, ...any) {})
	_ = outW.Close()
	<-done

	assert(t, err == nil, "Run failed: %v", err)
	assert(t, total == int64(len(input)), "total=%d want %d", total, len(input))
	assert(t, out.String() == "1, 2, 3, 4, 5", "stdout=%q", out.String())
	assert(t, firstByteCalls == 1, "onFirstByte must fire exactly once for non-empty input, fired %d times", firstByteCalls)
}

func TestRunOverPipesEmptyInput(t *testing.T) {
	inR, inW, err := os.Pipe()
	assert(t, err == nil, "stdin pipe: %v", err)
	outR, outW, err := os.Pipe()
	assert(t, err == nil, "stdout pipe: %v", err)
	_ = inW.Close()

	done := make(chan struct{})
	go func() {
		var discard bytes.Buffer
		_, _ = discard.ReadFrom(outR)
		close(done)
	}()

	firstByteCalls := 0
	total, err := Run(int(inR.Fd()), int(outW.Fd()), func() error { firstByteCalls++; return nil }, func(string, ...any) {})
	_ = outW.Close()
	<-done

	assert(t, total == 0, "expected zero bytes consumed, got %d", total)
	assert(t, err == nil, "expected nil error on clean empty EOF, got %v", err)
	assert(t, firstByteCalls == 0, "onFirstByte must not fire for empty input, fired %d times", firstByteCalls)
}

// TestRunOverEmptyRegularFileNeverCallsOnFirstByte covers the other
// empty-input path: a zero-length regular file, which selectMode
// rejects with ErrNoInputData before any engine (and so onFirstByte)
// ever runs.
func TestRunOverEmptyRegularFileNeverCallsOnFirstByte(t *testing.T) {
	in, err := os.CreateTemp(t.TempDir(), "empty-stdin")
	assert(t, err == nil, "create temp file: %v", err)
	defer in.Close()

	outR, outW, err := os.Pipe()
	assert(t, err == nil, "stdout pipe: %v", err)
	done := make(chan struct{})
	go func() {
		var discard bytes.Buffer
		_, _ = discard.ReadFrom(outR)
		close(done)
	}()

	firstByteCalls := 0
	total, err := Run(int(in.Fd()), int(outW.Fd()), func() error { firstByteCalls++; return nil }, func(string, ...any) {})
	_ = outW.Close()
	<-done

	assert(t, total == 0, "expected zero bytes consumed, got %d", total)
	assert(t, err == ErrNoInputData, "expected ErrNoInputData, got %v", err)
	assert(t, firstByteCalls == 0, "onFirstByte must not fire for empty input, fired %d times", firstByteCalls)
}
