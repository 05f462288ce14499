package core

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
)

func trainedTable(t testing.TB, corpus []string, vocabSize uint32) *MergeTable {
	t.Helper()

	words := wordsOf(corpus...)
	counts := make([]int64, len(words))
	for i := range counts {
		counts[i] = int64(len(corpus) - i)
	}

	var tr Trainer
	mt, err := tr.Train(words, counts, vocabSize)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	return mt
}

var encoderCorpus = []string{
	"the", " the", " quick", " brown", " fox", " jumps", " over", " lazy", " dog",
	" then", " there", " other", " brother", " thorough", "aaaa", " aaa", " banana",
}

func replay(mt *MergeTable, chunk []byte) []uint32 {
	w := WordFromBytes(chunk)
	for p, id := range mt.All() {
		w.MergePair(p, id)
	}
	return w.IDs()
}

func TestEncodeSingleByteCoverage(t *testing.T) {
	mt := trainedTable(t, encoderCorpus, 300)
	enc := NewEncoder(mt)
	dec := NewDecoder(mt)

	for b := range 256 {
		in := []byte{byte(b)}
		ids := enc.Encode(in)
		if len(ids) != 1 || ids[0] != uint32(b) {
			t.Fatalf("byte 0x%02x: got %v", b, ids)
		}
		if out := dec.Decode(ids); !bytes.Equal(out, in) {
			t.Fatalf("byte 0x%02x: roundtrip mismatch: %v", b, out)
		}
	}
}

func TestEncodeMatchesReplay(t *testing.T) {
	mt := trainedTable(t, encoderCorpus, 320)
	enc := NewEncoder(mt)

	inputs := append([]string{"", "aaaaaaa", " the other brother", "thethethe"}, encoderCorpus...)
	for _, in := range inputs {
		got := enc.Encode([]byte(in))
		want := replay(mt, []byte(in))
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("%q: encode %v, replay %v", in, got, want)
		}
	}
}

func TestEncodeMergedWordCollapses(t *testing.T) {
	mt := trainedTable(t, []string{" fox", " fox", " fox"}, 256+3)
	enc := NewEncoder(mt)

	ids := enc.Encode([]byte(" fox"))
	if len(ids) != 1 || ids[0] != 258 {
		t.Fatalf("expected [258], got %v", ids)
	}
}

func TestEncodeRoundTripRandom(t *testing.T) {
	mt := trainedTable(t, encoderCorpus, 320)
	enc := NewEncoder(mt)
	dec := NewDecoder(mt)

	for _, n := range []int{0, 1, 2, 3, 7, 31, 255, 1024} {
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			t.Fatalf("rand.Read: %v", err)
		}

		round := dec.Decode(enc.Encode(buf))
		if !bytes.Equal(round, buf) {
			t.Fatalf("roundtrip mismatch (n=%d)\n got: %s\nwant: %s",
				n, hex.EncodeToString(round), hex.EncodeToString(buf))
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	mt := trainedTable(t, encoderCorpus, 320)
	enc := NewEncoder(mt)
	in := []byte(" the brother the other the banana")

	a := enc.Encode(in)
	b := enc.Encode(in)
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Fatalf("nondeterministic: %v vs %v", a, b)
	}
}

func TestDecodeBounds(t *testing.T) {
	mt := trainedTable(t, encoderCorpus, 260)
	dec := NewDecoder(mt)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-range id")
		}
	}()
	_ = dec.Decode([]uint32{uint32(mt.VocabSize())})
}

func TestPairLookupFallback(t *testing.T) {
	mt := NewMergeTable()
	mt.Add(Pair{1, 2}, 1)
	for i := range 1200 {
		mt.Add(Pair{3, uint32(i + 10)}, 1)
	}
	// both ids past the dense table
	last := mt.Add(Pair{1400, 1401}, 1)

	pl := NewPairLookup(mt)
	if id, ok := pl.Lookup(1, 2); !ok || id != 256 {
		t.Fatalf("dense lookup: got %d %v", id, ok)
	}
	if id, ok := pl.Lookup(1400, 1401); !ok || id != last {
		t.Fatalf("fallback lookup: got %d %v, want %d", id, ok, last)
	}
	if _, ok := pl.Lookup(2, 1); ok {
		t.Fatalf("unexpected hit for (2,1)")
	}
	if _, ok := pl.Lookup(2000, 1); ok {
		t.Fatalf("unexpected fallback hit for (2000,1)")
	}
}
