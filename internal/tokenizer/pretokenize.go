package tokenizer

import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"github.com/dlclark/regexp2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// GPT4Pattern is the cl100k split pattern. The possessive quantifiers of the
// published form are written as atomic groups, which is how regexp2 spells them.
const GPT4Pattern = `'(?i:[sdmt]|ll|ve|re)|(?>[^\r\n\p{L}\p{N}]?)\p{L}+|\p{N}{1,3}| ?(?>[^\s\p{L}\p{N}]+)[\r\n]*|\s*[\r\n]|\s+(?!\S)|\s+`

// Splitter cuts text into the chunks merges are learned and applied within.
type Splitter struct {
	pattern string
	re      *regexp2.Regexp
	nfc     bool
}

func NewSplitter(pattern string, nfc bool) (*Splitter, error) {
	if pattern == "" {
		pattern = GPT4Pattern
	}

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid split pattern: %w", err)
	}

	return &Splitter{pattern: pattern, re: re, nfc: nfc}, nil
}

func (s *Splitter) Pattern() string {
	return s.pattern
}

// Split yields the successive matches of the pattern in text. Text between
// matches is dropped; the default pattern leaves none. Chunks are slices of
// text, so bytes that are not valid UTF-8 come through unchanged.
func (s *Splitter) Split(text string) iter.Seq[string] {
	if s.nfc {
		text = norm.NFC.String(text)
	}

	return func(yield func(string) bool) {
		m, err := s.re.FindStringMatch(text)
		if m == nil || err != nil {
			return
		}

		// regexp2 reports rune positions
		offsets := runeOffsets(text)
		for m != nil && err == nil {
			if !yield(text[offsets[m.Index]:offsets[m.Index+m.Length]]) {
				return
			}
			m, err = s.re.FindNextMatch(m)
		}
	}
}

// runeOffsets maps rune index to byte offset, with one extra entry for the
// end of text. An invalid byte counts as one rune, as in []rune(text).
func runeOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}

// CountChunks splits every text and counts identical chunks. Texts are shared
// out between at most workers goroutines and the partial counts summed.
func CountChunks(ctx context.Context, s *Splitter, texts []string, workers int) (map[string]int64, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(texts))
	if workers == 0 {
		return map[string]int64{}, nil
	}

	chunkSize := (len(texts) + workers - 1) / workers
	workers = (len(texts) + chunkSize - 1) / chunkSize

	partials := make([]map[string]int64, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		start := w * chunkSize
		end := min(start+chunkSize, len(texts))
		g.Go(func() error {
			local := make(map[string]int64)
			for _, text := range texts[start:end] {
				if err := ctx.Err(); err != nil {
					return err
				}
				for chunk := range s.Split(text) {
					local[chunk]++
				}
			}
			partials[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := partials[0]
	for _, p := range partials[1:] {
		for chunk, n := range p {
			total[chunk] += n
		}
	}
	return total, nil
}
