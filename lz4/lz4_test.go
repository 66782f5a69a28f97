package lz4

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/andybalholm/devil"
	"github.com/andybalholm/devil/lzss"
	"github.com/pierrec/lz4/v4"
)

const sampleText = `It was the best of times, it was the worst of times, it was the age of
wisdom, it was the age of foolishness, it was the epoch of belief, it was
the epoch of incredulity, it was the season of Light, it was the season of
Darkness, it was the spring of hope, it was the winter of despair.
`

func testData() []byte {
	rng := rand.New(rand.NewSource(7))
	var data []byte
	for len(data) < 200000 {
		data = append(data, sampleText[rng.Intn(len(sampleText)/2):]...)
		noise := make([]byte, rng.Intn(32))
		rng.Read(noise)
		data = append(data, noise...)
	}
	return data
}

func decode(t *testing.T, compressed []byte, size int) []byte {
	t.Helper()
	decompressed := make([]byte, size)
	n, err := lz4.UncompressBlock(compressed, decompressed)
	if err != nil {
		t.Fatal(err)
	}
	if n != size {
		t.Fatalf("Got %d bytes, wanted %d", n, size)
	}
	return decompressed
}

func TestBlockEncode(t *testing.T) {
	data := testData()

	var mf lzss.MatchFinder
	matches := mf.FindMatches(nil, data)
	var be BlockEncoder
	compressed := be.Encode(nil, data, matches, true)

	if !bytes.Equal(decode(t, compressed, len(data)), data) {
		t.Fatal("Decompressed output does not match")
	}
	if len(compressed) > len(data)/2 {
		t.Fatalf("compressed %d bytes to %d", len(data), len(compressed))
	}
}

func TestBlockEncodeShortInputs(t *testing.T) {
	for _, s := range []string{"a", "abcabcabcabc", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", sampleText} {
		data := []byte(s)
		matches := lzss.MatchFinder{}.FindMatches(nil, data)
		compressed := BlockEncoder{}.Encode(nil, data, matches, true)
		if !bytes.Equal(decode(t, compressed, len(data)), data) {
			t.Fatalf("%q: decompressed output does not match", s)
		}
	}
}

func TestUnusableMatchesBecomeLiterals(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10)
	matches := []devil.Match{
		{Unmatched: 10, Length: 3, Distance: 10},
		{Unmatched: 0, Length: 20, Distance: 10},
		{Unmatched: 0, Length: 67, Distance: 10},
	}
	compressed := BlockEncoder{}.Encode(nil, data, matches, true)
	if !bytes.Equal(decode(t, compressed, len(data)), data) {
		t.Fatal("Decompressed output does not match")
	}
}

func TestLongLengths(t *testing.T) {
	data := append(make([]byte, 1000), []byte("tail end")...)
	matches := []devil.Match{{Unmatched: 1, Length: 999, Distance: 1}, {Unmatched: 8}}
	compressed := BlockEncoder{}.Encode(nil, data, matches, true)
	if !bytes.Equal(decode(t, compressed, len(data)), data) {
		t.Fatal("Decompressed output does not match")
	}
}

func BenchmarkBlockEncode(b *testing.B) {
	data := testData()
	matches := lzss.MatchFinder{}.FindMatches(nil, data)
	var be BlockEncoder
	compressed := be.Encode(nil, data, matches, true)
	b.SetBytes(int64(len(data)))
	b.ReportMetric(float64(len(data))/float64(len(compressed)), "ratio")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		compressed = be.Encode(compressed[:0], data, matches, true)
	}
}
