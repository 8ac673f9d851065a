package format

import "strings"

// ChunkSize is the statically chosen byte-group size K used by the
// chunk-specialised emitter. Spec's design notes call out a hardcoded
// 8 found alongside the parameterised bytes_per_chunk in the original
// source; K is pinned to that same value so there is no divergence.
const ChunkSize = 8

// Initial fires for the very first byte of the stream: no leading
// separator.
var Initial = MustCompile("%u")

// Single formats one byte with a leading separator, used for
// byte-at-a-time tails.
var Single = MustCompile(", %u")

// Chunk formats exactly ChunkSize bytes in one call, each preceded by
// a separator.
var Chunk = MustCompile(strings.Repeat(", %u", ChunkSize))
