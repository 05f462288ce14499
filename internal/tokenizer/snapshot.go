package tokenizer

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/bpetrain/internal/tokenizer/core"
)

const snapshotVersion = 1

type snapshot struct {
	Version int             `cbor:"version"`
	Pattern string          `cbor:"pattern"`
	NFC     bool            `cbor:"nfc,omitempty"`
	Merges  []snapshotMerge `cbor:"merges"`
}

type snapshotMerge struct {
	_     struct{} `cbor:",toarray"`
	A     uint32
	B     uint32
	ID    uint32
	Count int64
}

// SaveSnapshot writes the pattern and merge table, frequencies included, as a
// single CBOR document.
func (t *Tokenizer) SaveSnapshot(w io.Writer) error {
	if t.merges == nil {
		return ErrNotTrained
	}

	snap := snapshot{
		Version: snapshotVersion,
		Pattern: t.splitter.Pattern(),
		NFC:     t.splitter.nfc,
		Merges:  make([]snapshotMerge, 0, t.merges.Len()),
	}
	for _, m := range t.merges.Merges() {
		snap.Merges = append(snap.Merges, snapshotMerge{A: m.Pair.A, B: m.Pair.B, ID: m.ID, Count: m.Count})
	}

	if err := cbor.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("error while encoding snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a document written by SaveSnapshot, re-checking that ids
// follow merge order.
func LoadSnapshot(r io.Reader) (*Tokenizer, error) {
	var snap snapshot
	if err := cbor.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("error while decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	t, err := New(snap.Pattern, snap.NFC)
	if err != nil {
		return nil, err
	}

	mt := core.NewMergeTable()
	for i, m := range snap.Merges {
		if m.Count < 0 {
			return nil, fmt.Errorf("snapshot merge %d: %w", i, core.ErrNegativeCount)
		}
		merge := core.Merge{Pair: core.Pair{A: m.A, B: m.B}, ID: m.ID, Count: m.Count}
		if err := mt.Append(merge); err != nil {
			return nil, fmt.Errorf("snapshot merge %d: %w", i, err)
		}
	}

	t.setMerges(mt)
	return t, nil
}
