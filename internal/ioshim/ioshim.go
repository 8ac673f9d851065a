// Package ioshim gives the rest of the pipeline a uniform raw
// read/write surface and the handful of file-descriptor constants it
// needs, independent of POSIX vs Windows underneath.
package ioshim

// Fd is a raw OS file descriptor / handle, passed around as an int the
// way the teacher's serial port code does (Port.f).
type Fd = int

const (
	Stdin  Fd = 0
	Stdout Fd = 1
	Stderr Fd = 2
)

// FileKind classifies what Stat found backing a descriptor, which is
// all the transport selector needs to pick an engine.
type FileKind int

const (
	KindOther FileKind = iota
	KindRegular
	KindPipe
)
