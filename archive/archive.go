// Package archive reads and writes archives of files and folders, with
// each file compressed as a stream (see package stream).
//
// An archive is laid out as follows, with integers in big-endian order:
//
//	codec name length (1 byte), codec name
//	listing length (4 bytes), gzip-compressed listing
//	for each file: original length, stored length, xxHash32 of the
//	    original bytes (4 bytes each)
//	the stored bytes of each file
//
// The listing holds the path of every entry, in order, each followed by a
// newline. Folder paths end with a slash.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strings"

	"github.com/andybalholm/devil/compr"
	"github.com/andybalholm/devil/stream"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/xxHash/xxHash32"
)

var (
	ErrBadPath      = errors.New("archive: invalid path")
	ErrDuplicate    = errors.New("archive: duplicate path")
	ErrChecksum     = errors.New("archive: checksum mismatch")
	ErrTruncated    = errors.New("archive: truncated")
	ErrUnknownCodec = errors.New("archive: unknown codec")
	ErrTooLarge     = errors.New("archive: file is larger than 4 GiB")
)

var errClosed = errors.New("archive: Writer is closed")

// An Entry describes a file or folder in an archive.
type Entry struct {
	Path string // slash-separated, without a trailing slash
	Dir  bool
	Size int    // original size of a file; 0 for a folder
}

type file struct {
	size     uint32
	checksum uint32
	stored   []byte
}

// A Writer builds an archive in memory and writes it out on Close.
type Writer struct {
	w       io.Writer
	name    string
	codec   compr.Compressor
	entries []Entry
	files   []file
	seen    map[string]bool
	err     error
}

// NewWriter returns a Writer that compresses files with the named codec
// (see compr.Names) and writes the archive to w.
func NewWriter(w io.Writer, codec string) (*Writer, error) {
	c := compr.Compression(codec)
	if c == nil || len(codec) > math.MaxUint8 {
		return nil, fmt.Errorf("%w %q", ErrUnknownCodec, codec)
	}
	return &Writer{
		w:     w,
		name:  codec,
		codec: c,
		seen:  make(map[string]bool),
	}, nil
}

func (w *Writer) add(p string) error {
	if w.err != nil {
		return w.err
	}
	if !validPath(p) {
		return fmt.Errorf("%w: %q", ErrBadPath, p)
	}
	if w.seen[p] {
		return fmt.Errorf("%w: %q", ErrDuplicate, p)
	}
	w.seen[p] = true
	return nil
}

// validPath reports whether p can be stored in an archive: a clean,
// relative, slash-separated path with no newline.
func validPath(p string) bool {
	return fs.ValidPath(p) && p != "." && !strings.ContainsRune(p, '\n')
}

// Create adds a file holding data.
func (w *Writer) Create(path string, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: %q", ErrTooLarge, path)
	}
	if err := w.add(path); err != nil {
		return err
	}
	stored := stream.Compress(data, w.codec)
	if uint64(len(stored)) > math.MaxUint32 {
		return fmt.Errorf("%w: %q", ErrTooLarge, path)
	}
	w.entries = append(w.entries, Entry{Path: path, Size: len(data)})
	w.files = append(w.files, file{
		size:     uint32(len(data)),
		checksum: xxHash32.Checksum(data, 0),
		stored:   stored,
	})
	return nil
}

// Mkdir adds a folder.
func (w *Writer) Mkdir(path string) error {
	if err := w.add(path); err != nil {
		return err
	}
	w.entries = append(w.entries, Entry{Path: path, Dir: true})
	return nil
}

// Close writes the archive. The Writer can't be used afterward.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	w.err = errClosed

	var listing bytes.Buffer
	zw := gzip.NewWriter(&listing)
	for _, e := range w.entries {
		io.WriteString(zw, e.Path)
		if e.Dir {
			io.WriteString(zw, "/")
		}
		io.WriteString(zw, "\n")
	}
	if err := zw.Close(); err != nil {
		return err
	}

	header := make([]byte, 0, 1+len(w.name)+4+listing.Len()+12*len(w.files))
	header = append(header, byte(len(w.name)))
	header = append(header, w.name...)
	header = binary.BigEndian.AppendUint32(header, uint32(listing.Len()))
	header = append(header, listing.Bytes()...)
	for _, f := range w.files {
		header = binary.BigEndian.AppendUint32(header, f.size)
		header = binary.BigEndian.AppendUint32(header, uint32(len(f.stored)))
		header = binary.BigEndian.AppendUint32(header, f.checksum)
	}
	if _, err := w.w.Write(header); err != nil {
		return err
	}
	for _, f := range w.files {
		if _, err := w.w.Write(f.stored); err != nil {
			return err
		}
	}
	return nil
}

// An Archive is a parsed archive. Files are decompressed on demand by Open.
type Archive struct {
	Codec   string
	Entries []Entry

	dec   compr.Decompressor
	files map[string]file
}

// Read parses an archive held in memory. The returned Archive refers to
// data, which must not be modified while it is in use.
func Read(data []byte) (*Archive, error) {
	d := decoder{data: data}
	name := string(d.bytes(int(d.uint8())))
	listing := d.bytes(int(d.uint32()))
	if d.err != nil {
		return nil, d.err
	}

	a := &Archive{
		Codec: name,
		dec:   compr.Decompression(name),
		files: make(map[string]file),
	}
	if a.dec == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownCodec, name)
	}

	zr, err := gzip.NewReader(bytes.NewReader(listing))
	if err != nil {
		return nil, fmt.Errorf("archive: listing: %w", err)
	}
	text, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("archive: listing: %w", err)
	}
	paths := strings.Split(string(text), "\n")
	if len(paths) == 0 || paths[len(paths)-1] != "" {
		return nil, fmt.Errorf("%w: listing is not newline-terminated", ErrTruncated)
	}
	paths = paths[:len(paths)-1]

	var files []string
	for _, p := range paths {
		dir := strings.HasSuffix(p, "/")
		p = strings.TrimSuffix(p, "/")
		if !validPath(p) {
			return nil, fmt.Errorf("%w: %q", ErrBadPath, p)
		}
		a.Entries = append(a.Entries, Entry{Path: p, Dir: dir})
		if !dir {
			files = append(files, p)
		}
	}

	type lengths struct{ size, stored, checksum uint32 }
	table := make([]lengths, len(files))
	for i := range table {
		table[i] = lengths{d.uint32(), d.uint32(), d.uint32()}
	}
	for i, p := range files {
		f := file{
			size:     table[i].size,
			checksum: table[i].checksum,
			stored:   d.bytes(int(table[i].stored)),
		}
		if d.err != nil {
			return nil, d.err
		}
		if _, ok := a.files[p]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, p)
		}
		a.files[p] = f
	}

	for i, e := range a.Entries {
		if !e.Dir {
			a.Entries[i].Size = int(a.files[e.Path].size)
		}
	}
	return a, nil
}

// Open decompresses the file at path and checks it against its checksum.
func (a *Archive) Open(path string) ([]byte, error) {
	f, ok := a.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	data, err := stream.Decompress(f.stored, a.dec)
	if err != nil {
		return nil, fmt.Errorf("archive: %s: %w", path, err)
	}
	if len(data) != int(f.size) || xxHash32.Checksum(data, 0) != f.checksum {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, path)
	}
	return data, nil
}

// A decoder reads big-endian fields from a byte slice. The first
// short read sets err, and later reads return zero values.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > len(d.data) {
		d.err = ErrTruncated
		d.data = nil
		return nil
	}
	b := d.data[:n:n]
	d.data = d.data[n:]
	return b
}

func (d *decoder) uint8() uint8 {
	b := d.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) uint32() uint32 {
	b := d.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
