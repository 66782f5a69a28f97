// Package compr provides a unified interface over the block codecs in this
// module and the third-party compression libraries, selected by name.
package compr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/andybalholm/brotli"
	devillz4 "github.com/andybalholm/devil/lz4"
	"github.com/andybalholm/devil/lzss"
	devilsnappy "github.com/andybalholm/devil/snappy"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor is the interface a block codec implements for compression.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress appends the compressed contents of src to dst and returns
	// the result.
	Compress(src, dst []byte) []byte
}

// Decompressor is the interface a block codec implements for
// decompression.
type Decompressor interface {
	// Name is the name of the compression algorithm.
	// See also Compressor.Name.
	Name() string
	// Decompress appends the decompressed contents of src to dst and
	// returns the result.
	//
	// It must be safe to make multiple calls to Decompress simultaneously
	// from different goroutines.
	Decompress(src, dst []byte) ([]byte, error)
}

// ErrCorrupt is returned when a block can't be decoded.
var ErrCorrupt = errors.New("compr: corrupt block")

var names = []string{"none", "lzss", "lz4", "lz4-bst", "snappy", "snappy-bst", "s2", "zstd", "flate", "brotli"}

// Names lists the algorithms known to Compression and Decompression.
func Names() []string {
	return append([]string(nil), names...)
}

// Compression selects a compression algorithm by name.
// The returned Compressor will return the same value
// for Compressor.Name as the specified name.
func Compression(name string) Compressor {
	switch name {
	case "none":
		return none{}
	case "lzss":
		return lzssCodec{}
	case "lz4":
		return lz4Codec{}
	case "lz4-bst", "snappy-bst":
		return matchCodec(name)
	case "snappy":
		return snappyCodec{}
	case "s2":
		return s2Codec{}
	case "zstd":
		z, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			panic(err)
		}
		return zstdCompressor{z}
	case "flate":
		return flateCodec{}
	case "brotli":
		return brotliCodec{}
	default:
		return nil
	}
}

// Decompression selects a decompression algorithm by name.
func Decompression(name string) Decompressor {
	switch name {
	case "none":
		return none{}
	case "lzss":
		return lzssCodec{}
	case "lz4":
		return lz4Codec{}
	case "lz4-bst", "snappy-bst":
		return matchCodec(name)
	case "snappy":
		return snappyCodec{}
	case "s2":
		return s2Codec{}
	case "zstd":
		return (*zstdDecompressor)(zstdDecoder)
	case "flate":
		return flateCodec{}
	case "brotli":
		return brotliCodec{}
	default:
		return nil
	}
}

func corrupt(name string, err error) error {
	return fmt.Errorf("%s: %w: %v", name, ErrCorrupt, err)
}

type none struct{}

func (none) Name() string { return "none" }

func (none) Compress(src, dst []byte) []byte { return append(dst, src...) }

func (none) Decompress(src, dst []byte) ([]byte, error) { return append(dst, src...), nil }

type lzssCodec struct{}

func (lzssCodec) Name() string { return "lzss" }

func (lzssCodec) Compress(src, dst []byte) []byte {
	matches := lzss.MatchFinder{}.FindMatches(nil, src)
	return lzss.Encoder{}.Encode(dst, src, matches, true)
}

func (lzssCodec) Decompress(src, dst []byte) ([]byte, error) {
	out, err := lzss.Extract(src)
	if err != nil {
		return dst, corrupt("lzss", err)
	}
	return append(dst, out...), nil
}

// lz4Codec is the LZ4 block format, preceded by the decoded length as a
// uvarint, since a raw LZ4 block doesn't record it.
type lz4Codec struct{}

func (lz4Codec) Name() string { return "lz4" }

func (lz4Codec) Compress(src, dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(src)))
	if len(src) == 0 {
		return dst
	}
	start := len(dst)
	dst = grow(dst, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst[start:], nil)
	if err != nil {
		panic(err)
	}
	return dst[:start+n]
}

func (lz4Codec) Decompress(src, dst []byte) ([]byte, error) {
	return decodeLZ4("lz4", src, dst)
}

func decodeLZ4(name string, src, dst []byte) ([]byte, error) {
	size, n := binary.Uvarint(src)
	if n <= 0 || size > uint64(len(src))*255 {
		return dst, corrupt(name, errors.New("bad length prefix"))
	}
	if size == 0 {
		return dst, nil
	}
	start := len(dst)
	dst = grow(dst, int(size))
	m, err := lz4.UncompressBlock(src[n:], dst[start:])
	if err != nil {
		return dst[:start], corrupt(name, err)
	}
	if m != int(size) {
		return dst[:start], corrupt(name, fmt.Errorf("expected %d bytes decompressed; got %d", size, m))
	}
	return dst, nil
}

// matchCodec pairs the BST match finder from package lzss with an encoder
// for another block format, which is then read by that format's standard
// decoder.
type matchCodec string

func (m matchCodec) Name() string { return string(m) }

func (m matchCodec) Compress(src, dst []byte) []byte {
	matches := lzss.MatchFinder{}.FindMatches(nil, src)
	if m == "snappy-bst" {
		return devilsnappy.BlockEncoder{}.Encode(dst, src, matches, true)
	}
	dst = binary.AppendUvarint(dst, uint64(len(src)))
	if len(src) == 0 {
		return dst
	}
	return devillz4.BlockEncoder{}.Encode(dst, src, matches, true)
}

func (m matchCodec) Decompress(src, dst []byte) ([]byte, error) {
	if m == "snappy-bst" {
		return snappyCodec{}.decode(string(m), src, dst)
	}
	return decodeLZ4(string(m), src, dst)
}

type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Compress(src, dst []byte) []byte {
	start := len(dst)
	dst = grow(dst, snappy.MaxEncodedLen(len(src)))
	got := snappy.Encode(dst[start:], src)
	return dst[:start+len(got)]
}

func (s snappyCodec) Decompress(src, dst []byte) ([]byte, error) {
	return s.decode("snappy", src, dst)
}

func (snappyCodec) decode(name string, src, dst []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return dst, corrupt(name, err)
	}
	start := len(dst)
	dst = grow(dst, n)
	got, err := snappy.Decode(dst[start:], src)
	if err != nil {
		return dst[:start], corrupt(name, err)
	}
	return dst[:start+len(got)], nil
}

type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }

func (s2Codec) Compress(src, dst []byte) []byte {
	start := len(dst)
	dst = grow(dst, s2.MaxEncodedLen(len(src)))
	got := s2.Encode(dst[start:], src)
	return dst[:start+len(got)]
}

func (s2Codec) Decompress(src, dst []byte) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return dst, corrupt("s2", err)
	}
	start := len(dst)
	dst = grow(dst, n)
	got, err := s2.Decode(dst[start:], src)
	if err != nil {
		return dst[:start], corrupt("s2", err)
	}
	return dst[:start+len(got)], nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func (z zstdCompressor) Compress(src, dst []byte) []byte {
	return z.enc.EncodeAll(src, dst)
}

func (z zstdCompressor) Name() string { return "zstd" }

var zstdDecoder *zstd.Decoder

func init() {
	// by default, concurrency is set to min(4, GOMAXPROCS);
	// we'd like it to *always* be GOMAXPROCS
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
}

type zstdDecompressor zstd.Decoder

func (z *zstdDecompressor) Name() string { return "zstd" }

func (z *zstdDecompressor) Decompress(src, dst []byte) ([]byte, error) {
	start := len(dst)
	ret, err := (*zstd.Decoder)(z).DecodeAll(src, dst)
	if err != nil {
		return dst[:start], corrupt("zstd", err)
	}
	return ret, nil
}

type flateCodec struct{}

func (flateCodec) Name() string { return "flate" }

func (flateCodec) Compress(src, dst []byte) []byte {
	b := bytes.NewBuffer(dst)
	w, err := flate.NewWriter(b, flate.DefaultCompression)
	if err != nil {
		panic(err)
	}
	w.Write(src)
	w.Close()
	return b.Bytes()
}

func (flateCodec) Decompress(src, dst []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	return readAll("flate", r, dst)
}

type brotliCodec struct{}

func (brotliCodec) Name() string { return "brotli" }

func (brotliCodec) Compress(src, dst []byte) []byte {
	b := bytes.NewBuffer(dst)
	w := brotli.NewWriterLevel(b, brotli.DefaultCompression)
	w.Write(src)
	w.Close()
	return b.Bytes()
}

func (brotliCodec) Decompress(src, dst []byte) ([]byte, error) {
	return readAll("brotli", brotli.NewReader(bytes.NewReader(src)), dst)
}

func readAll(name string, r io.Reader, dst []byte) ([]byte, error) {
	start := len(dst)
	b := bytes.NewBuffer(dst)
	if _, err := b.ReadFrom(r); err != nil {
		return dst[:start], corrupt(name, err)
	}
	return b.Bytes(), nil
}

// grow extends dst by n bytes, reallocating if its capacity is too small.
func grow(dst []byte, n int) []byte {
	if cap(dst)-len(dst) >= n {
		return dst[:len(dst)+n]
	}
	out := make([]byte, len(dst)+n)
	copy(out, dst)
	return out
}
