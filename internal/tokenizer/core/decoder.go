package core

// Decoder maps token ids back to bytes.
type Decoder struct {
	revVocab [][]byte
}

func NewDecoder(mt *MergeTable) *Decoder {
	return &Decoder{revVocab: mt.TokenBytes()}
}

// Known reports whether id belongs to the vocabulary.
func (d *Decoder) Known(id uint32) bool {
	return int(id) < len(d.revVocab)
}

// Decode a given sequence of tokens to a sequence of bytes. It panics on an
// id outside the vocabulary.
func (d *Decoder) Decode(tokens []uint32) []byte {
	if len(tokens) == 0 {
		return nil
	}

	total := 0
	for _, id := range tokens {
		if !d.Known(id) {
			panic("token id out of range while decoding")
		}
		total += len(d.revVocab[id])
	}

	out := make([]byte, 0, total)
	for _, id := range tokens {
		out = append(out, d.revVocab[id]...)
	}

	return out
}
