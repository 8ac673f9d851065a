// Package format compiles a small blueprint language ("%u" placeholders
// mixed with literal text) into an operation program once, then
// executes that program against typed arguments with no further
// runtime parsing of the blueprint — the per-byte hot path only ever
// walks a slice of already-decided operations.
package format

import "github.com/daedaluz/bin2carray/internal/ioerr"

// OpKind distinguishes a literal text span from a typed placeholder.
type OpKind int

const (
	OpText OpKind = iota
	OpUint8
)

// Op is one step of a compiled Program: either a literal span of the
// original blueprint, or a single %u placeholder.
type Op struct {
	Kind OpKind
	Text string // valid only when Kind == OpText
}

// Program is the compiled form of a blueprint: an ordered list of
// operations plus the number of placeholders it expects arguments for.
type Program struct {
	Ops          []Op
	Placeholders int
}

// Compile parses blueprint with a two-state automaton: state 1 is
// plain literal text, state 2 is immediately after a '%'. The only
// recognised placeholder is %u (one unsigned byte). Adjacent literal
// bytes are coalesced into a single Text op automatically, since a
// span is only cut when a placeholder or end-of-string is reached.
func Compile(blueprint string) (*Program, error) {
	const (
		stateText   = 1
		stateEscape = 2
	)
	var ops []Op
	state := stateText
	textStart := 0

	for i := 0; i < len(blueprint); i++ {
		c := blueprint[i]
		switch state {
		case stateText:
			if c == '%' {
				if i > textStart {
					ops = append(ops, Op{Kind: OpText, Text: blueprint[textStart:i]})
				}
				state = stateEscape
			}
		case stateEscape:
			if c != 'u' {
				return nil, ioerr.New("blueprint invalid: unsupported placeholder")
			}
			ops = append(ops, Op{Kind: OpUint8})
			state = stateText
			textStart = i + 1
		}
	}
	if state == stateEscape {
		return nil, ioerr.New("blueprint invalid: dangling '%' at end of blueprint")
	}
	if textStart < len(blueprint) {
		ops = append(ops, Op{Kind: OpText, Text: blueprint[textStart:]})
	}

	placeholders := 0
	for _, op := range ops {
		if op.Kind == OpUint8 {
			placeholders++
		}
	}
	return &Program{Ops: ops, Placeholders: placeholders}, nil
}

// MustCompile is Compile for blueprints known to be valid at
// init time — it panics on failure, standing in for the compile-time
// failure the original design has no runtime equivalent for.
func MustCompile(blueprint string) *Program {
	p, err := Compile(blueprint)
	if err != nil {
		panic(err)
	}
	return p
}
