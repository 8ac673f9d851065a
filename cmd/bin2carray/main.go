// Command bin2carray reads stdin and writes a C or C++ constant byte
// array declaration of its contents to stdout.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
	"github.com/daedaluz/bin2carray/internal/transport"
)

const helpText = `usage: bin2carray [--varname NAME] <c|c++>

Reads stdin and writes a constant byte array declaration to stdout.

  --varname NAME   name of the emitted array (default "data")
  -v, --verbose    log transport engine selection and fallbacks to stderr
  -h, --help       show this help text and exit
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the whole of main's logic, pulled out so the seed scenarios
// in section 8 of the spec can be exercised without a subprocess.
func run(args []string, stdin, stdout, stderr *os.File) int {
	fs := pflag.NewFlagSet("bin2carray", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {}

	varname := fs.StringP("varname", "", "data", "name of the emitted array")
	help := fs.BoolP("help", "h", false, "show help text and exit")
	verbose := fs.BoolP("verbose", "v", false, "log transport engine selection and fallbacks to stderr")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 0
	}

	if *help {
		if fs.NArg() > 0 || fs.Changed("varname") || fs.Changed("verbose") {
			fmt.Fprintf(stderr, "ERROR: --help takes no other arguments\n")
			return 0
		}
		fmt.Fprint(stdout, helpText)
		return 0
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "ERROR: expected exactly one argument, the target language (c or c++)\n")
		return 0
	}

	var prefix, suffix string
	switch fs.Arg(0) {
	case "c":
		prefix = fmt.Sprintf("const char %s[] = { ", *varname)
		suffix = " };\n"
	case "c++":
		prefix = fmt.Sprintf("const char %s[] { ", *varname)
		suffix = " };\n"
	default:
		fmt.Fprintf(stderr, "ERROR: unknown language %q, expected c or c++\n", fs.Arg(0))
		return 0
	}

	// Debug diagnostics (engine selection, fallback reasons) are opt-in
	// via --verbose: by default the handler level sits above Debug so
	// spec §6's clean stderr contract holds on every ordinary run.
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))
	debugf := func(format string, a ...any) { logger.Debug(fmt.Sprintf(format, a...)) }

	stdinFd := ioshim.Fd(stdin.Fd())
	stdoutFd := ioshim.Fd(stdout.Fd())

	// The prefix is only written once transport.Run confirms input is
	// non-empty (onFirstByte fires right before the first output byte),
	// so the empty-input error path never leaves a dangling
	// "const char NAME[] = { " on stdout.
	prefixWritten := false
	onFirstByte := func() error {
		prefixWritten = true
		return writeAll(stdoutFd, []byte(prefix))
	}

	total, err := transport.Run(stdinFd, stdoutFd, onFirstByte, debugf)
	if err == transport.ErrNoInputData || (err == nil && total == 0) {
		fmt.Fprintf(stderr, "ERROR: %s\n", ioerr.ErrNoData.Error())
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if !prefixWritten {
		// Should be unreachable: total > 0 implies onFirstByte ran.
		if err := writeAll(stdoutFd, []byte(prefix)); err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
	}

	if err := writeAll(stdoutFd, []byte(suffix)); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

// writeAll loops ioshim.Write past short writes, the same pattern the
// async stream's background flusher uses for the pipe it owns.
func writeAll(fd ioshim.Fd, p []byte) error {
	for len(p) > 0 {
		n, err := ioshim.Write(fd, p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
