// Package lz4 writes the LZ4 block format from a list of devil.Match, so
// that any devil.MatchFinder can produce data for a standard LZ4 decoder.
package lz4

import (
	"encoding/binary"

	"github.com/andybalholm/devil"
)

const (
	minMatch    = 4
	maxDistance = 65535

	// A block must end with at least lastLiterals literal bytes, and its
	// last match must start at least matchMargin bytes before the end.
	lastLiterals = 5
	matchMargin  = 12
)

// A BlockEncoder implements the devil.Encoder interface, writing in the LZ4
// block format. Matches the format can't express (shorter than 4 bytes, or
// more than 65535 bytes back) are written as literals.
type BlockEncoder struct{}

func (BlockEncoder) Reset() {}

func (BlockEncoder) Encode(dst []byte, src []byte, matches []devil.Match, lastBlock bool) []byte {
	matches = matches[:keep(matches)]

	pos := 0
	start := 0 // first literal not yet written
	for _, m := range matches {
		pos += m.Unmatched
		if m.Length >= minMatch && m.Distance > 0 && m.Distance <= maxDistance {
			dst = appendSequence(dst, src[start:pos], m.Distance, m.Length)
			start = pos + m.Length
		}
		pos += m.Length
	}

	// The final sequence has only literals.
	return appendSequence(dst, src[start:], 0, 0)
}

// keep returns how many of matches can be used before the block's tail,
// which must be all literals.
func keep(matches []devil.Match) int {
	n := len(matches)
	trailing := 0
	for n > 0 && (trailing < lastLiterals || trailing+matches[n-1].Length < matchMargin) {
		n--
		trailing += matches[n].Unmatched + matches[n].Length
	}
	return n
}

// appendSequence appends a token, the literals, and (if length > 0) the
// match offset and extra length bytes.
func appendSequence(dst []byte, literals []byte, distance, length int) []byte {
	token := byte(min(len(literals), 15)) << 4
	if length > 0 {
		token |= byte(min(length-minMatch, 15))
	}
	dst = append(dst, token)
	if len(literals) >= 15 {
		dst = appendInt(dst, len(literals)-15)
	}
	dst = append(dst, literals...)

	if length == 0 {
		return dst
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(distance))
	if length-minMatch >= 15 {
		dst = appendInt(dst, length-minMatch-15)
	}
	return dst
}

// appendInt appends n to dst in LZ4's variable-length integer format.
func appendInt(dst []byte, n int) []byte {
	for n >= 255 {
		dst = append(dst, 255)
		n -= 255
	}
	return append(dst, byte(n))
}
