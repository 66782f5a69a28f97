// Package devil is a lossless compression toolkit built around two codecs
// written from scratch: an adaptive Huffman coder (package huffman) and an
// LZSS coder that finds matches with per-prefix binary search trees
// (package lzss).
//
// As in most LZ77 compressors, the LZSS coder has two logically separate
// parts: something that looks for repeated sequences of bytes, and an
// encoder for the compressed data format. This package defines the
// interfaces and the intermediate representation between them, so that a
// match finder can be paired with more than one output format (see package
// lz4).
package devil

// A Match is the basic unit of LZ77 compression.
type Match struct {
	Unmatched int // the number of unmatched bytes since the previous match
	Length    int // the number of bytes in the matched string; it may be 0 at the end of the input
	Distance  int // how far back in the stream to copy from
}

// A MatchFinder performs the LZ77 stage of compression, looking for matches.
type MatchFinder interface {
	// FindMatches looks for matches in src, appends them to dst, and returns dst.
	FindMatches(dst []Match, src []byte) []Match

	// Reset clears any internal state, preparing the MatchFinder to be used with
	// a new stream.
	Reset()
}

// An Encoder encodes the data in its final format.
type Encoder interface {
	// Encode appends the encoded format of src to dst, using the match
	// information from matches.
	Encode(dst []byte, src []byte, matches []Match, lastBlock bool) []byte

	// Reset clears any internal state, preparing the Encoder to be used with
	// a new stream.
	Reset()
}
