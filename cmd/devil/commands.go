package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andybalholm/devil/archive"
	"github.com/andybalholm/devil/compr"
	"github.com/andybalholm/devil/huffman"
	"github.com/andybalholm/devil/lzss"
	"github.com/andybalholm/devil/stream"
	"github.com/cheggaaa/pb/v3"
)

var extensions = map[string]string{
	"huffman": ".huf",
	"lzss":    ".lzs",
	"stream":  ".dvl",
}

func codecNames() []string {
	return compr.Names()
}

// fileFlags are the options shared by compress and extract.
type fileFlags struct {
	algo     string
	codec    string
	out      string
	progress bool
}

func (o *fileFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.algo, "algo", "stream", "")
	fs.StringVar(&o.codec, "codec", stream.DefaultCodec, "")
	fs.StringVar(&o.out, "o", "", "")
	fs.BoolVar(&o.progress, "progress", false, "")
}

func (o *fileFlags) check() {
	if _, ok := extensions[o.algo]; !ok {
		usageErrorf("unknown algorithm \"%s\"", o.algo)
	}
	if compr.Compression(o.codec) == nil {
		usageErrorf("unknown codec \"%s\"", o.codec)
	}
}

func oneArg(fs *flag.FlagSet, expected string) string {
	if fs.NArg() < 1 {
		usageErrorf("not enough arguments; expected %s", expected)
	}
	if fs.NArg() > 1 {
		usageErrorf("too many arguments at %d (\"%s\")", 1, fs.Arg(1))
	}
	return fs.Arg(0)
}

// openInput opens name for reading, behind a progress bar if progress is
// set. The returned function closes the file and finishes the bar.
func openInput(name string, progress bool) (io.Reader, func(), error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	if !progress {
		return f, func() { f.Close() }, nil
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	bar := pb.Full.Start64(info.Size())
	bar.Set(pb.Bytes, true)
	return bar.NewProxyReader(f), func() {
		bar.Finish()
		f.Close()
	}, nil
}

// A countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// transform reads the input file, runs fn over it, and writes the result to
// the output file.
func transform(name, out string, progress bool, fn func(dst io.Writer, src io.Reader) error) error {
	in, done, err := openInput(name, progress)
	if err != nil {
		return err
	}
	defer done()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	cw := &countingWriter{w: bw}
	start := time.Now()
	if err := fn(cw, in); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Infof("%s -> %s: wrote %d bytes in %v", name, out, cw.n, time.Since(start).Round(time.Millisecond))
	return nil
}

func compressCommand(args []string) error {
	fs := newFlagSet("compress")
	var opts fileFlags
	opts.register(fs)
	parse(fs, args)
	name := oneArg(fs, "FILE")
	opts.check()

	out := opts.out
	if out == "" {
		out = name + extensions[opts.algo]
	}
	log.Debugf("compressing %s with %s (codec %s)", name, opts.algo, opts.codec)

	return transform(name, out, opts.progress, func(dst io.Writer, src io.Reader) error {
		if opts.algo == "stream" {
			w := &stream.Writer{Dest: dst, Codec: compr.Compression(opts.codec)}
			if _, err := io.Copy(w, src); err != nil {
				return err
			}
			return w.Close()
		}

		data, err := io.ReadAll(src)
		if err != nil {
			return err
		}
		var compressed []byte
		if opts.algo == "huffman" {
			compressed = huffman.Compress(nil, data)
		} else if compressed, err = lzss.Compress(data); err != nil {
			return err
		}
		_, err = dst.Write(compressed)
		return err
	})
}

func extractCommand(args []string) error {
	fs := newFlagSet("extract")
	var opts fileFlags
	opts.register(fs)
	parse(fs, args)
	name := oneArg(fs, "FILE")
	opts.check()

	out := opts.out
	if out == "" {
		out = strings.TrimSuffix(name, extensions[opts.algo])
		if out == name {
			out = name + ".out"
		}
	}
	log.Debugf("extracting %s with %s (codec %s)", name, opts.algo, opts.codec)

	return transform(name, out, opts.progress, func(dst io.Writer, src io.Reader) error {
		var data []byte
		var err error
		switch opts.algo {
		case "stream":
			_, err = io.Copy(dst, stream.NewReader(src, compr.Decompression(opts.codec)))
			return err
		case "huffman":
			data, err = huffman.Extract(bufio.NewReader(src))
		case "lzss":
			if data, err = io.ReadAll(src); err == nil {
				data, err = lzss.Extract(data)
			}
		}
		if err != nil {
			return err
		}
		_, err = dst.Write(data)
		return err
	})
}

func packCommand(args []string) error {
	fs := newFlagSet("pack")
	codec := fs.String("codec", stream.DefaultCodec, "")
	out := fs.String("o", "", "")
	parse(fs, args)
	dir := oneArg(fs, "DIR")
	if *out == "" {
		usageErrorf("pack needs an output file (-o ARCHIVE)")
	}

	var buf bytes.Buffer
	w, err := archive.NewWriter(&buf, *codec)
	if err != nil {
		usageErrorf("%s", err.Error())
	}
	if err := archive.AddDir(w, os.DirFS(dir)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	log.Infof("%s -> %s: wrote %d bytes", dir, *out, buf.Len())
	return nil
}

func readArchive(name string) (*archive.Archive, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	a, err := archive.Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Debugf("%s: %d entries, codec %s", name, len(a.Entries), a.Codec)
	return a, nil
}

func unpackCommand(args []string) error {
	fs := newFlagSet("unpack")
	dir := fs.String("C", ".", "")
	parse(fs, args)
	name := oneArg(fs, "ARCHIVE")

	a, err := readArchive(name)
	if err != nil {
		return err
	}
	if err := a.Extract(*dir); err != nil {
		return err
	}
	log.Infof("%s: extracted %d entries into %s", name, len(a.Entries), *dir)
	return nil
}

func listCommand(args []string) error {
	fs := newFlagSet("list")
	parse(fs, args)
	name := oneArg(fs, "ARCHIVE")

	a, err := readArchive(name)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', tabwriter.AlignRight)
	for _, e := range a.Entries {
		if e.Dir {
			fmt.Fprintf(tw, "\t\t%s/\n", e.Path)
		} else {
			fmt.Fprintf(tw, "%d\t\t%s\n", e.Size, e.Path)
		}
	}
	return tw.Flush()
}

var errMismatch = errors.New("round trip mismatch")

func benchCommand(args []string) error {
	fs := newFlagSet("bench")
	parse(fs, args)
	if fs.NArg() == 0 {
		usageErrorf("not enough arguments; expected FILE")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCODEC\tSIZE\tRATIO\tSTREAM\tRATIO\tTIME\t")
	for _, name := range fs.Args() {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			log.Warningf("%s: skipping empty file", name)
			continue
		}

		start := time.Now()
		h := huffman.Compress(nil, data)
		if got, err := huffman.Decompress(h); err != nil || !bytes.Equal(got, data) {
			return fmt.Errorf("%s: huffman: %w", name, errMismatch)
		}
		fmt.Fprintf(tw, "%s\thuffman\t%d\t%.3f\t\t\t%v\t\n", name, len(h), ratio(data, h), time.Since(start).Round(time.Microsecond))

		for _, codec := range compr.Names() {
			start := time.Now()
			c, d := compr.Compression(codec), compr.Decompression(codec)
			raw := c.Compress(data, nil)
			if got, err := d.Decompress(raw, nil); err != nil || !bytes.Equal(got, data) {
				return fmt.Errorf("%s: %s: %w", name, codec, errMismatch)
			}
			piped := stream.Compress(data, c)
			if got, err := stream.Decompress(piped, d); err != nil || !bytes.Equal(got, data) {
				return fmt.Errorf("%s: stream with %s: %w", name, codec, errMismatch)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%d\t%.3f\t%v\t\n", name, codec, len(raw), ratio(data, raw), len(piped), ratio(data, piped), time.Since(start).Round(time.Microsecond))
			log.Debugf("%s: %s done", name, codec)
		}
	}
	return tw.Flush()
}

func ratio(data, compressed []byte) float64 {
	return float64(len(data)) / float64(len(compressed))
}
