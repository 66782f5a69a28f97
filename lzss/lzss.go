// Package lzss implements an LZSS compressor with a 64 KiB sliding window.
//
// Matches are found with binary search trees over the window (one tree per
// leading byte), in the manner of Haruhiko Okumura's LZSS.C, and the output
// is a byte-aligned token stream; see Encoder for the layout. Matching and
// encoding are separate steps, so the MatchFinder can also drive other
// encoders.
package lzss

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrEmptyInput is returned by Compress and Extract for an empty or nil
	// buffer.
	ErrEmptyInput = errors.New("lzss: input buffer is empty")

	// ErrTooLarge is returned by Compress when the input length does not fit
	// in the 4-byte header.
	ErrTooLarge = errors.New("lzss: input is larger than 4 GiB")
)

// Compress returns the LZSS encoding of src.
func Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	if uint64(len(src)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	matches := MatchFinder{}.FindMatches(nil, src)
	return Encoder{}.Encode(make([]byte, 0, len(src)/2+16), src, matches, true), nil
}

// Extract decodes an LZSS stream. Decoding stops when the length given in
// the header has been produced or the input runs out, whichever comes
// first; a truncated stream yields the bytes decoded so far, without an
// error.
//
// A match may point at window positions that were never written; they
// read as zero.
func Extract(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	if len(src) < 4 {
		return []byte{}, nil
	}
	size := int(binary.LittleEndian.Uint32(src))
	in := 4

	// A token is at least 2 bytes (counting its flag bit generously), so
	// no stream expands by more than a match per 2 bytes.
	limit := (len(src) - in) / 2 * maxMatch
	if size < limit {
		limit = size
	}
	out := make([]byte, 0, limit)

	var buf [windowSize]byte
	r := windowSize - maxMatch
	var flags byte
	count := 8

	for len(out) < size {
		if count == 8 {
			if in == len(src) {
				break
			}
			flags = src[in]
			in++
			count = 0
		}
		isMatch := flags&0x80 != 0
		flags <<= 1
		count++

		if !isMatch {
			if in == len(src) {
				break
			}
			c := src[in]
			in++
			out = append(out, c)
			buf[r] = c
			r = (r + 1) & windowMask
			continue
		}

		if in+3 > len(src) {
			break
		}
		distance := int(src[in])<<8 | int(src[in+1])
		length := int(src[in+2]) + minMatch + 1
		in += 3
		// Byte by byte, since the source may overlap the bytes being written.
		for k := 0; k < length; k++ {
			c := buf[(r-distance-1)&windowMask]
			if len(out) < size {
				out = append(out, c)
			}
			buf[r] = c
			r = (r + 1) & windowMask
		}
	}
	return out, nil
}
