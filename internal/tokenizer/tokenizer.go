package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/bpetrain/internal/tokenizer/core"
)

var (
	ErrNotTrained     = errors.New("tokenizer has no merges, train or load one first")
	ErrUnknownToken   = errors.New("token id outside the vocabulary")
	ErrDuplicateToken = errors.New("two token ids share one byte sequence")
)

// DefaultBufferSize is how many texts are split and counted per batch.
const DefaultBufferSize = 8192

// TrainOptions tune TrainFromIterator. Zero values pick defaults.
type TrainOptions struct {
	// texts held in memory per counting batch
	BufferSize int
	// goroutines for chunk counting and pair aggregation, 0 means GOMAXPROCS
	Workers int
}

// Tokenizer pairs a split pattern with a learned merge table. After training
// or loading it is read-only and safe for concurrent Encode/Decode.
// Invariants we maintain:
//   - ids 0..255 are the raw bytes, id 256+i is merges[i].
//   - encoder and decoder are always built from the current merge table.
type Tokenizer struct {
	splitter *Splitter

	merges  *core.MergeTable
	encoder *core.Encoder
	decoder *core.Decoder
}

// New returns an untrained tokenizer. An empty pattern selects GPT4Pattern.
func New(pattern string, nfc bool) (*Tokenizer, error) {
	s, err := NewSplitter(pattern, nfc)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{splitter: s}, nil
}

func (t *Tokenizer) Pattern() string {
	return t.splitter.Pattern()
}

// Merges returns the learned table, nil before training.
func (t *Tokenizer) Merges() *core.MergeTable {
	return t.merges
}

func (t *Tokenizer) setMerges(mt *core.MergeTable) {
	t.merges = mt
	t.encoder = core.NewEncoder(mt)
	t.decoder = core.NewDecoder(mt)
}

/*
TrainFromIterator learns vocabSize-256 merges from a stream of texts.

	step 1: pull texts in batches of BufferSize, split and count chunks per batch
	step 2: every distinct chunk becomes a word of byte ids, weighted by its count
	step 3: hand the words to the core trainer

Chunks are sorted before step 2 so that the same corpus always produces the
same word order.
*/
func (t *Tokenizer) TrainFromIterator(ctx context.Context, texts iter.Seq[string], vocabSize uint32, opts TrainOptions) error {
	if vocabSize < core.NumBytes {
		return fmt.Errorf("%w: got %d", core.ErrInvalidVocabSize, vocabSize)
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	counts := make(map[string]int64)
	buf := make([]string, 0, bufferSize)
	var total int

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		batch, err := CountChunks(ctx, t.splitter, buf, opts.Workers)
		if err != nil {
			return err
		}
		for chunk, n := range batch {
			counts[chunk] += n
		}
		total += len(buf)
		slog.Debug("counted batch", "texts", len(buf), "total", total, "unique chunks", len(counts))
		buf = buf[:0]
		return nil
	}

	slog.Info("processing sequences", "buffer size", bufferSize)
	for text := range texts {
		buf = append(buf, text)
		if len(buf) < bufferSize {
			continue
		}
		if err := flush(); err != nil {
			return err
		}
	}
	// texts may stop early because the source failed and cancelled ctx
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	slog.Info("processed sequences", "total", total, "unique chunks", len(counts))

	chunks := slices.Sorted(maps.Keys(counts))
	words := make([]core.Word, len(chunks))
	weights := make([]int64, len(chunks))
	for i, chunk := range chunks {
		words[i] = core.WordFromBytes([]byte(chunk))
		weights[i] = counts[chunk]
	}

	return t.train(words, weights, vocabSize, opts.Workers)
}

// Train learns merges from words prepared by the caller. counts[i] weighs
// words[i]; the words are rewritten in place as merges are applied.
func (t *Tokenizer) Train(words []core.Word, counts []int64, vocabSize uint32) error {
	return t.train(words, counts, vocabSize, 0)
}

func (t *Tokenizer) train(words []core.Word, counts []int64, vocabSize uint32, workers int) error {
	trainer := core.Trainer{Workers: workers}
	mt, err := trainer.Train(words, counts, vocabSize)
	if err != nil {
		return err
	}
	t.setMerges(mt)
	return nil
}

// Encode splits text and encodes every chunk with the learned merges.
func (t *Tokenizer) Encode(text string) ([]uint32, error) {
	if t.merges == nil {
		return nil, ErrNotTrained
	}

	var ids []uint32
	for chunk := range t.splitter.Split(text) {
		ids = append(ids, t.encoder.Encode([]byte(chunk))...)
	}
	return ids, nil
}

// Decode concatenates the bytes of ids. The result is not necessarily valid
// UTF-8 when ids is a slice of a longer encoding.
func (t *Tokenizer) Decode(ids []uint32) ([]byte, error) {
	if t.merges == nil {
		return nil, ErrNotTrained
	}

	for i, id := range ids {
		if !t.decoder.Known(id) {
			return nil, fmt.Errorf("%w: id %d at position %d, vocabulary has %d", ErrUnknownToken, id, i, t.merges.VocabSize())
		}
	}
	return t.decoder.Decode(ids), nil
}

// MergeableRanks returns the byte sequence of every token; the index is the
// token's rank. Ranks 0..255 are single bytes, the rest follow merge order.
func (t *Tokenizer) MergeableRanks() [][]byte {
	if t.merges == nil {
		return core.NewMergeTable().TokenBytes()
	}
	return t.merges.TokenBytes()
}
