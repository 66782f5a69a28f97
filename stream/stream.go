// Package stream compresses data in independent blocks: each block is
// compressed with a general-purpose block codec (see package compr), and
// the result is coded with adaptive Huffman coding. The blocks are written
// one after another with no other framing, since each Huffman stream ends
// with its own end-of-stream code.
package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/devil/compr"
	"github.com/andybalholm/devil/huffman"
)

// DefaultBlockSize is the block size used when Writer.BlockSize is zero.
const DefaultBlockSize = 1 << 16

// DefaultCodec is the name of the codec used when no codec is given.
const DefaultCodec = "s2"

// ErrCorrupt is returned by Reader when a block can't be decoded.
var ErrCorrupt = errors.New("stream: corrupt block")

var errClosed = errors.New("stream: write to closed Writer")

// A Writer compresses the data written to it and writes the compressed
// stream to Dest.
type Writer struct {
	Dest io.Writer

	// Codec is the block codec; nil means DefaultCodec.
	Codec compr.Compressor

	// BlockSize is the number of bytes of input in each block (except
	// possibly the last one); 0 means DefaultBlockSize.
	BlockSize int

	buf     []byte
	scratch []byte
	out     []byte
	err     error
}

func (w *Writer) blockSize() int {
	if w.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return w.BlockSize
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	size := w.blockSize()
	for len(p) > 0 {
		if w.buf == nil {
			w.buf = make([]byte, 0, size)
		}
		k := copy(w.buf[len(w.buf):size], p)
		w.buf = w.buf[:len(w.buf)+k]
		p = p[k:]
		n += k
		if len(w.buf) == size {
			if err := w.flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// flush compresses and writes the buffered block.
func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if w.Codec == nil {
		w.Codec = compr.Compression(DefaultCodec)
	}
	w.scratch = w.Codec.Compress(w.buf, w.scratch[:0])
	w.out = huffman.Compress(w.out[:0], w.scratch)
	w.buf = w.buf[:0]
	if _, err := w.Dest.Write(w.out); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Close writes any buffered data as a final block. It does not close Dest.
// After Close, the Writer can be used again only after calling Reset.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	err := w.flush()
	if err == nil {
		w.err = errClosed
	}
	return err
}

// Reset discards any buffered data and errors, and prepares w to write a
// new stream to dst.
func (w *Writer) Reset(dst io.Writer) {
	w.Dest = dst
	w.buf = w.buf[:0]
	w.err = nil
}

// A Reader decompresses a stream written by a Writer. A block cut short is
// only detected if the block codec rejects what is left of it.
type Reader struct {
	src   *bufio.Reader
	dec   compr.Decompressor
	buf   []byte
	block []byte // the undelivered part of buf
	count int    // blocks read so far
	err   error
}

// NewReader returns a Reader that decompresses r, using d for the block
// codec; nil means DefaultCodec. d must match the Writer's codec.
func NewReader(r io.Reader, d compr.Decompressor) *Reader {
	if d == nil {
		d = compr.Decompression(DefaultCodec)
	}
	return &Reader{
		src: bufio.NewReader(r),
		dec: d,
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	for len(r.block) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.err = r.next()
	}
	n := copy(p, r.block)
	r.block = r.block[n:]
	return n, nil
}

// next decodes the next block into r.block.
func (r *Reader) next() error {
	if _, err := r.src.Peek(1); err != nil {
		return err
	}
	r.count++
	coded, err := huffman.Extract(r.src)
	if err != nil {
		if errors.Is(err, huffman.ErrCorrupt) {
			return fmt.Errorf("%w: block %d: %w", ErrCorrupt, r.count, err)
		}
		return err
	}
	r.buf, err = r.dec.Decompress(coded, r.buf[:0])
	if err != nil {
		return fmt.Errorf("%w: block %d: %w", ErrCorrupt, r.count, err)
	}
	r.block = r.buf
	return nil
}

// Compress returns the stream encoding of src, using the codec c (nil
// means DefaultCodec).
func Compress(src []byte, c compr.Compressor) []byte {
	var b bytes.Buffer
	w := &Writer{Dest: &b, Codec: c}
	w.Write(src)
	w.Close()
	return b.Bytes()
}

// Decompress decodes a whole stream held in memory.
func Decompress(src []byte, d compr.Decompressor) ([]byte, error) {
	return io.ReadAll(NewReader(bytes.NewReader(src), d))
}
