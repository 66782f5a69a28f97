package lzss

import (
	"bytes"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/andybalholm/devil"
)

const sampleText = `Whan that Aprill with his shoures soote
The droghte of March hath perced to the roote,
And bathed every veyne in swich licour
Of which vertu engendred is the flour;
Whan Zephirus eek with his sweete breeth
Inspired hath in every holt and heeth
The tendre croppes, and the yonge sonne
Hath in the Ram his half cours yronne,
`

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 100000)
	rng.Read(random)

	ascending := make([]byte, 256)
	for i := range ascending {
		ascending[i] = byte(i)
	}

	// Text with random noise mixed in, long enough to wrap the window
	// several times.
	var mixed []byte
	for len(mixed) < 300000 {
		mixed = append(mixed, sampleText[:rng.Intn(len(sampleText))]...)
		noise := make([]byte, rng.Intn(64))
		rng.Read(noise)
		mixed = append(mixed, noise...)
	}

	return map[string][]byte{
		"one":       {'x'},
		"four":      []byte("abab"),
		"zeros":     make([]byte, 70000),
		"run":       bytes.Repeat([]byte{0x01, 0x02}, 100),
		"ascending": ascending,
		"text":      bytes.Repeat([]byte(sampleText), 30),
		"random":    random,
		"mixed":     mixed,
	}
}

func TestRoundTrip(t *testing.T) {
	for name, data := range testInputs() {
		compressed, err := Compress(data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		decompressed, err := Extract(compressed)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.Equal(decompressed, data) {
			t.Fatalf("%s: decompressed output doesn't match (got %d bytes, want %d)", name, len(decompressed), len(data))
		}
	}
}

func TestEmptyInput(t *testing.T) {
	if _, err := Compress(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Compress(nil): got %v, want ErrEmptyInput", err)
	}
	if _, err := Compress([]byte{}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Compress([]byte{}): got %v, want ErrEmptyInput", err)
	}
	if _, err := Extract(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Extract(nil): got %v, want ErrEmptyInput", err)
	}
}

// TestMatchesAreValid checks every match against the input directly.
func TestMatchesAreValid(t *testing.T) {
	for name, data := range testInputs() {
		matches := MatchFinder{}.FindMatches(nil, data)
		pos := 0
		for i, m := range matches {
			pos += m.Unmatched
			if m.Length == 0 {
				if i != len(matches)-1 {
					t.Fatalf("%s: empty match %d is not the last one", name, i)
				}
				continue
			}
			if m.Length <= minMatch || m.Length > maxMatch {
				t.Fatalf("%s: match %d has length %d", name, i, m.Length)
			}
			if m.Distance < 1 || m.Distance > pos || m.Distance > windowSize-maxMatch {
				t.Fatalf("%s: match %d at %d has distance %d", name, i, pos, m.Distance)
			}
			for k := 0; k < m.Length; k++ {
				if data[pos+k] != data[pos+k-m.Distance] {
					t.Fatalf("%s: match %d at %d (length %d, distance %d) differs at byte %d", name, i, pos, m.Length, m.Distance, k)
				}
			}
			pos += m.Length
		}
		if pos != len(data) {
			t.Fatalf("%s: matches cover %d bytes, want %d", name, pos, len(data))
		}
	}
}

func TestRunLengthMatch(t *testing.T) {
	data := bytes.Repeat([]byte{0x01, 0x02}, 100)
	matches := MatchFinder{}.FindMatches(nil, data)
	text := devil.TextEncoder{}.Encode(nil, data, matches, true)
	if want := "\x01\x02<198,2>"; string(text) != want {
		t.Fatalf("got matches %q, want %q", text, want)
	}

	compressed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	// header, one flag byte, two literals, one match
	if len(compressed) != 4+1+2+3 {
		t.Fatalf("compressed to %d bytes: %x", len(compressed), compressed)
	}
	if compressed[4] != 0x20 {
		t.Fatalf("flag byte = %08b, want 00100000", compressed[4])
	}
	got, err := Extract(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("run did not round-trip")
	}
}

func TestLiteralFallback(t *testing.T) {
	data := testInputs()["ascending"]
	matches := MatchFinder{}.FindMatches(nil, data)
	if len(matches) != 1 || matches[0].Unmatched != 256 || matches[0].Length != 0 {
		t.Fatalf("matches = %v, want a single literal run", matches)
	}
	compressed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) != 4+256+32 {
		t.Fatalf("compressed to %d bytes, want %d", len(compressed), 4+256+32)
	}
	for i := 4; i < len(compressed); i += 9 {
		if compressed[i] != 0 {
			t.Fatalf("flag byte at %d is %08b", i, compressed[i])
		}
	}
	got, err := Extract(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("decompressed output doesn't match")
	}
}

func TestHeader(t *testing.T) {
	compressed, _ := Compress([]byte("hello, hello, hello"))
	if got := compressed[:4]; !bytes.Equal(got, []byte{19, 0, 0, 0}) {
		t.Fatalf("header = %x", got)
	}
}

func TestDeclaredLengthLimitsOutput(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 100)
	compressed, _ := Compress(data)
	compressed[0] = 10
	compressed[1] = 0
	got, err := Extract(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data[:10]) {
		t.Fatalf("got %q, want %q", got, data[:10])
	}
}

func TestTruncated(t *testing.T) {
	data := testInputs()["text"]
	compressed, _ := Compress(data)
	for _, n := range []int{1, 3, 4, 5, 6, len(compressed) / 2, len(compressed) - 1} {
		got, err := Extract(compressed[:n])
		if err != nil {
			t.Fatalf("truncated to %d: %v", n, err)
		}
		if !bytes.HasPrefix(data, got) {
			t.Fatalf("truncated to %d: output is not a prefix of the input", n)
		}
	}
}

func TestGarbage(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		garbage := make([]byte, 1+rng.Intn(500))
		rng.Read(garbage)
		if i%2 == 0 && len(garbage) >= 4 {
			// Keep the declared size small so that the whole body is read.
			garbage[2], garbage[3] = 0, 0
		}
		if _, err := Extract(garbage); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEncoderSplitsLongMatches(t *testing.T) {
	data := bytes.Repeat([]byte{'z'}, 1+maxMatch+maxMatch+2)
	matches := []devil.Match{{Unmatched: 1, Length: len(data) - 1, Distance: 1}}
	compressed := Encoder{}.Encode(nil, data, matches, true)
	got, err := Extract(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %d bytes, want %d", len(got), len(data))
	}
}

func TestEncoderShortMatchesAreLiterals(t *testing.T) {
	data := []byte("abcabc")
	matches := []devil.Match{{Unmatched: 3, Length: 3, Distance: 3}}
	compressed := Encoder{}.Encode(nil, data, matches, true)
	if len(compressed) != 4+1+6 || compressed[4] != 0 {
		t.Fatalf("got %x, want six literals", compressed)
	}
}

func TestDeterministic(t *testing.T) {
	data := testInputs()["mixed"]
	a, _ := Compress(data)
	b, _ := Compress(data)
	if !bytes.Equal(a, b) {
		t.Fatal("two compressions differ")
	}
}

func TestConcurrentIndependence(t *testing.T) {
	inputs := testInputs()
	want := make(map[string][]byte)
	for name, data := range inputs {
		want[name], _ = Compress(data)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 2*len(inputs))
	for name, data := range inputs {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(name string, data []byte) {
				defer wg.Done()
				c, _ := Compress(data)
				if !bytes.Equal(c, want[name]) {
					errs <- name
					return
				}
				d, _ := Extract(c)
				if !bytes.Equal(d, data) {
					errs <- name
				}
			}(name, data)
		}
	}
	wg.Wait()
	close(errs)
	for name := range errs {
		t.Errorf("%s: concurrent result differs from sequential result", name)
	}
}

func TestCompressionRatio(t *testing.T) {
	data := testInputs()["text"]
	compressed, _ := Compress(data)
	if len(compressed) > len(data)/10 {
		t.Fatalf("repeated text compressed from %d to only %d bytes", len(data), len(compressed))
	}
}

func benchmark(b *testing.B, data []byte) {
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	compressed, _ := Compress(data)
	b.ReportMetric(float64(len(data))/float64(len(compressed)), "ratio")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compress(data)
	}
}

func BenchmarkCompressMixed(b *testing.B) {
	benchmark(b, testInputs()["mixed"])
}

func BenchmarkCompressRandom(b *testing.B) {
	benchmark(b, testInputs()["random"])
}

func BenchmarkExtractMixed(b *testing.B) {
	data := testInputs()["mixed"]
	compressed, _ := Compress(data)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Extract(compressed)
	}
}
