package bitio

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWriteBits(t *testing.T) {
	b := new(bytes.Buffer)
	w := NewWriter(b)
	for _, bit := range []uint{1, 0, 1, 1, 0, 0, 0, 1, 1, 1} {
		w.WriteBit(bit)
	}
	if b.Len() != 1 {
		t.Fatalf("got %d bytes before Flush, want 1", b.Len())
	}
	if w.Buffered() != 2 {
		t.Fatalf("Buffered() = %d, want 2", w.Buffered())
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0xb1, 0xc0}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("got %x, want %x", b.Bytes(), want)
	}

	// A second Flush with nothing pending writes nothing.
	w.Flush()
	if b.Len() != 2 {
		t.Fatalf("empty Flush wrote a byte")
	}
}

func TestWriteByteUnaligned(t *testing.T) {
	b := new(bytes.Buffer)
	w := NewWriter(b)
	w.WriteBit(1)
	w.WriteByte(0x81)
	w.WriteBits(0x5, 3)
	w.Flush()
	// 1 10000001 101 -> 11000000 11010000
	want := []byte{0xc0, 0xd0}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("got %08b, want %08b", b.Bytes(), want)
	}
}

func TestReadBits(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xb1}))
	var got []uint
	for {
		bit, err := r.ReadBit()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, bit)
	}
	want := []uint{1, 0, 1, 1, 0, 0, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("got %d bits, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bit %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestReadByte(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xc0, 0xd0}))
	if bit, _ := r.ReadBit(); bit != 1 {
		t.Fatalf("first bit = %d, want 1", bit)
	}
	c, err := r.ReadByte()
	if err != nil {
		t.Fatal(err)
	}
	if c != 0x81 {
		t.Fatalf("ReadByte = %#x, want 0x81", c)
	}
	if r.Buffered() != 7 {
		t.Fatalf("Buffered() = %d, want 7", r.Buffered())
	}
	// Seven bits remain, so the next byte is cut short.
	if _, err := r.ReadByte(); err != io.ErrUnexpectedEOF {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestRoundTrip(t *testing.T) {
	b := new(bytes.Buffer)
	w := NewWriter(b)
	for i := 0; i < 1000; i++ {
		w.WriteBits(uint32(i), uint(i%13)+1)
	}
	w.Flush()

	r := NewReader(bytes.NewReader(b.Bytes()))
	for i := 0; i < 1000; i++ {
		n := uint(i%13) + 1
		var v uint32
		for j := uint(0); j < n; j++ {
			bit, err := r.ReadBit()
			if err != nil {
				t.Fatalf("value %d: %v", i, err)
			}
			v = v<<1 | uint32(bit)
		}
		if want := uint32(i) & (1<<n - 1); v != want {
			t.Fatalf("value %d: got %d, want %d", i, v, want)
		}
	}
}

type failingWriter struct{ n int }

var errFull = errors.New("full")

func (f *failingWriter) WriteByte(c byte) error {
	if f.n == 0 {
		return errFull
	}
	f.n--
	return nil
}

func TestStickyError(t *testing.T) {
	w := NewWriter(&failingWriter{n: 1})
	w.WriteByte(1)
	if err := w.WriteByte(2); err != errFull {
		t.Fatalf("got %v, want errFull", err)
	}
	if err := w.WriteBit(1); err != errFull {
		t.Fatalf("error not retained: %v", err)
	}
	if w.Err() != errFull {
		t.Fatalf("Err() = %v", w.Err())
	}
}
