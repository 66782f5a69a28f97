// Package bitio reads and writes single bits packed MSB-first into bytes,
// on top of github.com/icza/bitio.
//
// The first bit written to a Writer becomes the high bit of the first byte.
// A partial byte is zero-padded on the low end when the Writer is flushed.
// Both sides work a byte at a time on the underlying stream, so a Reader
// never consumes a byte past the last bit it returns.
package bitio

import (
	"io"

	"github.com/icza/bitio"
)

// byteSink gives an io.ByteWriter the io.Writer method bitio.NewWriter
// wants, so that it is written directly rather than through a bufio.Writer.
type byteSink struct{ io.ByteWriter }

func (s byteSink) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// byteSource does the same for an io.ByteReader, so that bitio.NewReader
// does not buffer ahead of the data it has decoded.
type byteSource struct{ io.ByteReader }

func (s byteSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = c
	return 1, nil
}

// A Writer packs bits into bytes and writes each completed byte to an
// io.ByteWriter. The first write error is retained and returned by every
// later call.
type Writer struct {
	w     *bitio.Writer
	nbits uint // bits in the current partial byte
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.ByteWriter) *Writer {
	if ww, ok := w.(io.Writer); ok {
		return &Writer{w: bitio.NewWriter(struct {
			io.Writer
			io.ByteWriter
		}{ww, w})}
	}
	return &Writer{w: bitio.NewWriter(byteSink{w})}
}

// WriteBit appends the low bit of bit to the stream.
func (w *Writer) WriteBit(bit uint) error {
	w.w.TryWriteBool(bit&1 == 1)
	w.advance(1)
	return w.w.TryError
}

// WriteByte writes the 8 bits of c, most significant first.
func (w *Writer) WriteByte(c byte) error {
	w.w.TryWriteByte(c)
	return w.w.TryError
}

// WriteBits writes the low n bits of v, most significant first. n must be
// at most 32.
func (w *Writer) WriteBits(v uint32, n uint) error {
	w.w.TryWriteBits(uint64(v)&(1<<n-1), uint8(n))
	w.advance(n)
	return w.w.TryError
}

func (w *Writer) advance(n uint) {
	if w.w.TryError == nil {
		w.nbits = (w.nbits + n) % 8
	}
}

// Flush writes the pending partial byte, if any, padded with zero bits on
// the low end.
func (w *Writer) Flush() error {
	if w.w.TryError != nil {
		return w.w.TryError
	}
	if err := w.w.Close(); err != nil {
		w.w.TryError = err
		return err
	}
	w.nbits = 0
	return nil
}

// Buffered returns the number of bits waiting for a full byte.
func (w *Writer) Buffered() int {
	return int(w.nbits)
}

// Err returns the first error the Writer encountered, if any.
func (w *Writer) Err() error {
	return w.w.TryError
}

// A Reader returns the bits of an io.ByteReader one at a time, high bit
// first. It never reads a byte from the source before the previous one has
// been fully consumed.
type Reader struct {
	r     *bitio.Reader
	nbits uint // unread bits of the current byte
}

// NewReader returns a Reader that reads from r.
func NewReader(r io.ByteReader) *Reader {
	if rr, ok := r.(io.Reader); ok {
		return &Reader{r: bitio.NewReader(struct {
			io.Reader
			io.ByteReader
		}{rr, r})}
	}
	return &Reader{r: bitio.NewReader(byteSource{r})}
}

// ReadBit returns the next bit, 0 or 1. When the source is exhausted it
// returns io.EOF; other errors from the source are returned unchanged.
func (r *Reader) ReadBit() (uint, error) {
	b, err := r.r.ReadBool()
	if err != nil {
		return 0, err
	}
	if r.nbits == 0 {
		r.nbits = 8
	}
	r.nbits--
	if b {
		return 1, nil
	}
	return 0, nil
}

// ReadByte reads 8 bits, most significant first. If the source runs out
// before the first bit it returns io.EOF; if it runs out after some bits
// have been consumed it returns io.ErrUnexpectedEOF, and the rest of the
// partial byte is dropped.
func (r *Reader) ReadByte() (byte, error) {
	c, err := r.r.ReadByte()
	if err == io.EOF && r.nbits > 0 {
		r.r.Align()
		r.nbits = 0
		err = io.ErrUnexpectedEOF
	}
	return c, err
}

// Buffered returns the number of bits of the current byte not yet read.
func (r *Reader) Buffered() int {
	return int(r.nbits)
}
