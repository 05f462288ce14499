package core

// maxFastLookup caps the dense table at 1024x1024 ids (4 MiB).
const maxFastLookup = 1024

// PairLookup answers "what does (a, b) merge into" for the encoder. Pairs of
// low ids, which are the most frequent ones, resolve through a flat dense
// table; the rest go through a map.
type PairLookup struct {
	fast     []uint32 // fast[a*fastSize+b], 0 when absent
	fastSize uint32
	fallback map[uint64]uint32
}

// NewPairLookup indexes every rule in mt.
func NewPairLookup(mt *MergeTable) *PairLookup {
	fastSize := uint32(min(mt.VocabSize(), maxFastLookup))

	pl := &PairLookup{
		fast:     make([]uint32, int(fastSize)*int(fastSize)),
		fastSize: fastSize,
		fallback: make(map[uint64]uint32),
	}

	for pair, id := range mt.All() {
		if pair.A < fastSize && pair.B < fastSize {
			// merged ids start at NumBytes so 0 is free to mean absent
			pl.fast[pair.A*fastSize+pair.B] = id
		} else {
			pl.fallback[packPair(pair.A, pair.B)] = id
		}
	}

	return pl
}

// Lookup returns the id (a, b) merges into.
func (pl *PairLookup) Lookup(a, b uint32) (uint32, bool) {
	if a < pl.fastSize && b < pl.fastSize {
		id := pl.fast[a*pl.fastSize+b]
		return id, id != 0
	}

	id, ok := pl.fallback[packPair(a, b)]
	return id, ok
}
