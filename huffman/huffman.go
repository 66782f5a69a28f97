// Package huffman implements one-pass adaptive Huffman coding (the FGK
// algorithm).
//
// Encoder and decoder both start from a tree holding only the NYT ("not yet
// transmitted") leaf and the end-of-stream symbol, and adjust the tree after
// every symbol, so no code table is stored in the stream. A byte that has
// not been seen before is sent as the NYT code followed by the raw byte.
// Each stream ends with the code for EOS and is padded to a byte boundary.
package huffman

import (
	"bytes"
	"errors"
	"io"

	"github.com/andybalholm/devil/bitio"
)

// ErrCorrupt is returned by Extract when the stream introduces a symbol that
// is already in the tree.
var ErrCorrupt = errors.New("huffman: corrupt stream")

// Compress appends the adaptive Huffman encoding of src to dst and returns
// the result. An empty src produces a stream holding only EOS.
func Compress(dst, src []byte) []byte {
	buf := bytes.NewBuffer(dst)
	w := bitio.NewWriter(buf)
	t := newCodeTree()
	for _, c := range src {
		t.encode(w, int(c))
	}
	t.encode(w, EOS)
	w.Flush()
	return buf.Bytes()
}

// Extract decodes one stream from r. It stops after the byte holding the
// EOS code, so streams written one after another can be extracted in turn
// from the same reader.
//
// If r runs out before EOS, Extract returns the bytes decoded so far and a
// nil error. Errors from r other than io.EOF are returned along with the
// partial output. An escape that introduces a byte already in the tree is
// the one malformed input that is not treated as truncation: Extract stops
// there and returns the partial output with ErrCorrupt.
func Extract(r io.ByteReader) ([]byte, error) {
	br := bitio.NewReader(r)
	t := newCodeTree()
	var out []byte

	for {
		n := int32(root)
		for !t.nodes[n].isLeaf() {
			bit, err := br.ReadBit()
			if err != nil {
				return out, endOfData(err)
			}
			if bit == 0 {
				n = t.nodes[n].left
			} else {
				n = t.nodes[n].right
			}
		}

		var symbol int
		if n == t.nyt {
			c, err := br.ReadByte()
			if err != nil {
				return out, endOfData(err)
			}
			if t.leaves[c] != none {
				return out, ErrCorrupt
			}
			symbol = int(c)
			n = t.addSymbol(symbol)
		} else {
			symbol = int(t.nodes[n].symbol)
		}

		if symbol == EOS {
			return out, nil
		}
		out = append(out, byte(symbol))
		t.update(n)
	}
}

// Decompress extracts the stream at the start of src.
func Decompress(src []byte) ([]byte, error) {
	return Extract(bytes.NewReader(src))
}

func endOfData(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil
	}
	return err
}
