package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// runWithInput wires stdin from a temp file holding data (so run sees
// a regular-file descriptor and can take the mmap-eligible paths on
// Linux) and captures stdout/stderr through os.Pipe.
func runWithInput(t *testing.T, args []string, data []byte) (code int, stdout, stderr string) {
	t.Helper()

	in, err := os.CreateTemp(t.TempDir(), "bin2carray-stdin")
	assert(t, err == nil, "create temp stdin: %v", err)
	_, err = in.Write(data)
	assert(t, err == nil, "write temp stdin: %v", err)
	_, err = in.Seek(0, 0)
	assert(t, err == nil, "seek temp stdin: %v", err)
	defer in.Close()

	outR, outW, err := os.Pipe()
	assert(t, err == nil, "stdout pipe: %v", err)
	errR, errW, err := os.Pipe()
	assert(t, err == nil, "stderr pipe: %v", err)

	var outBuf, errBuf bytes.Buffer
	done := make(chan struct{})
	go func() {
		var b1, b2 bytes.Buffer
		b1.ReadFrom(outR)
		b2.ReadFrom(errR)
		outBuf = b1
		errBuf = b2
		close(done)
	}()

	code = run(args, in, outW, errW)
	outW.Close()
	errW.Close()
	<-done

	return code, outBuf.String(), errBuf.String()
}

func TestSingleZeroByte(t *testing.T) {
	code, stdout, stderr := runWithInput(t, []string{"c"}, []byte{0x00})
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, stdout == "const char data[] = { 0 };\n", "stdout %q", stdout)
}

// TestStderrIsCleanByDefault locks in the fix for the hardcoded-Debug
// handler level: an ordinary run must not spew engine-selection
// diagnostics to stderr unless -v/--verbose was passed.
func TestStderrIsCleanByDefault(t *testing.T) {
	code, _, stderr := runWithInput(t, []string{"c"}, []byte{1, 2, 3})
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, stderr == "", "stderr must be empty by default, got %q", stderr)
}

func TestVerboseFlagEnablesDebugLogging(t *testing.T) {
	code, _, stderr := runWithInput(t, []string{"--verbose", "c"}, []byte{1, 2, 3})
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, strings.Contains(stderr, "level=DEBUG"), "expected debug diagnostics, stderr %q", stderr)
}

// TestEmptyInputNeverWritesPrefix locks in the deferred-prefix fix: on
// empty stdin the process must not have emitted any part of the
// declaration to stdout before failing.
func TestEmptyInputNeverWritesPrefix(t *testing.T) {
	code, stdout, stderr := runWithInput(t, []string{"c"}, nil)
	assert(t, code == 1, "want exit failure, got %d", code)
	assert(t, stdout == "", "stdout must be empty on empty-input failure, got %q", stdout)
	assert(t, strings.Contains(stderr, "ERROR:"), "stderr %q", stderr)
}

func TestVarnameAndCpp(t *testing.T) {
	code, stdout, stderr := runWithInput(t, []string{"--varname", "foo", "c++"}, []byte{1, 2, 3})
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, stdout == "const char foo[] { 1, 2, 3 };\n", "stdout %q", stdout)
}

func TestMixedBytesCpp(t *testing.T) {
	code, stdout, stderr := runWithInput(t, []string{"c++"}, []byte{0xFF, 0x0A, 0x00})
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, stdout == "const char data[] { 255, 10, 0 };\n", "stdout %q", stdout)
}

func TestEmptyInputFails(t *testing.T) {
	code, _, stderr := runWithInput(t, []string{"c"}, nil)
	assert(t, code == 1, "want exit failure, got %d", code)
	assert(t, strings.Contains(stderr, "ERROR: no data received, language requires data"),
		"stderr %q", stderr)
}

func TestHelpAlonePrintsAndSucceeds(t *testing.T) {
	code, stdout, stderr := runWithInput(t, []string{"--help"}, nil)
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, strings.Contains(stdout, "usage: bin2carray"), "stdout %q", stdout)
}

func TestHelpWithOtherArgumentReportsError(t *testing.T) {
	code, _, stderr := runWithInput(t, []string{"--help", "c"}, nil)
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, strings.Contains(stderr, "ERROR:"), "stderr %q", stderr)
}

func TestUnknownLanguageIsConfigError(t *testing.T) {
	code, _, stderr := runWithInput(t, []string{"rust"}, []byte{1})
	assert(t, code == 0, "unknown language must exit success, got %d", code)
	assert(t, strings.Contains(stderr, "ERROR:"), "stderr %q", stderr)
}

func TestMissingLanguageIsConfigError(t *testing.T) {
	code, _, stderr := runWithInput(t, nil, []byte{1})
	assert(t, code == 0, "missing language must exit success, got %d", code)
	assert(t, strings.Contains(stderr, "ERROR:"), "stderr %q", stderr)
}

func TestLargeInputByteAtATime(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, 100000)
	code, stdout, stderr := runWithInput(t, []string{"c"}, data)
	assert(t, code == 0, "exit code %d, stderr %q", code, stderr)
	assert(t, strings.HasPrefix(stdout, "const char data[] = { 65, 65, "), "prefix: %q", stdout[:40])
	assert(t, strings.HasSuffix(stdout, "65, 65 };\n"), "suffix: %q", stdout[len(stdout)-20:])
	assert(t, strings.Count(stdout, ", ") == len(data)-1, "separator count mismatch")
}
