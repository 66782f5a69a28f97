// Package snappy writes the Snappy block format from a list of devil.Match.
// The output is a single block, as read by snappy.Decode, not the framed
// stream format.
package snappy

import (
	"encoding/binary"

	"github.com/andybalholm/devil"
)

const (
	tagLiteral = 0x00
	tagCopy1   = 0x01
	tagCopy2   = 0x02

	maxOffset = 1<<16 - 1
)

// A BlockEncoder implements the devil.Encoder interface. Every call to
// Encode produces a complete block; lastBlock is ignored. Matches more than
// 65535 bytes back are written as literals.
type BlockEncoder struct{}

func (BlockEncoder) Reset() {}

func (BlockEncoder) Encode(dst []byte, src []byte, matches []devil.Match, lastBlock bool) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(src)))

	pos := 0
	start := 0 // first literal not yet written
	for _, m := range matches {
		pos += m.Unmatched
		if m.Length > 0 && m.Distance > 0 && m.Distance <= maxOffset {
			if start < pos {
				dst = appendLiteral(dst, src[start:pos])
			}
			dst = appendCopy(dst, m.Length, m.Distance)
			start = pos + m.Length
		}
		pos += m.Length
	}
	if start < len(src) {
		dst = appendLiteral(dst, src[start:])
	}
	return dst
}

// appendLiteral writes lit as one literal element. Its length field can
// hold any length up to 4 GiB, so there is no need to split it.
func appendLiteral(dst, lit []byte) []byte {
	n := uint32(len(lit) - 1)
	switch {
	case n < 60:
		dst = append(dst, byte(n)<<2|tagLiteral)
	case n < 1<<8:
		dst = append(dst, 60<<2|tagLiteral, byte(n))
	case n < 1<<16:
		dst = append(dst, 61<<2|tagLiteral, byte(n), byte(n>>8))
	case n < 1<<24:
		dst = append(dst, 62<<2|tagLiteral, byte(n), byte(n>>8), byte(n>>16))
	default:
		dst = append(dst, 63<<2|tagLiteral, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	return append(dst, lit...)
}

// appendCopy writes a copy of length bytes from offset back, as a series of
// copy elements of at most 64 bytes each.
func appendCopy(dst []byte, length, offset int) []byte {
	// A 2-byte copy needs at least 4 bytes, so a 65 to 67 byte tail is
	// split 60 + the rest rather than 64 + 1 to 3.
	for length >= 68 {
		dst = appendCopy2(dst, 64, offset)
		length -= 64
	}
	if length > 64 {
		dst = appendCopy2(dst, 60, offset)
		length -= 60
	}
	if length < 4 || length >= 12 || offset >= 2048 {
		return appendCopy2(dst, length, offset)
	}
	return append(dst,
		byte(offset>>8)<<5|byte(length-4)<<2|tagCopy1,
		byte(offset),
	)
}

func appendCopy2(dst []byte, length, offset int) []byte {
	return append(dst, byte(length-1)<<2|tagCopy2, byte(offset), byte(offset>>8))
}
