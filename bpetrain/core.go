// Package bpetrain learns byte-level BPE merge tables and applies them.
package bpetrain

import (
	"github.com/bpetrain/internal/tokenizer"
	"github.com/bpetrain/internal/tokenizer/core"
)

type (
	// Pair is two adjacent token ids.
	Pair = core.Pair
	// Word is one distinct pre-tokenized chunk as token ids.
	Word = core.Word
	// Merge is one learned rule.
	Merge = core.Merge
	// MergeTable is the ordered training result.
	MergeTable = core.MergeTable
	// Trainer runs the greedy merge loop over prepared words.
	Trainer = core.Trainer

	// Tokenizer pairs a split pattern with a merge table.
	Tokenizer    = tokenizer.Tokenizer
	TrainOptions = tokenizer.TrainOptions
)

const (
	NumBytes    = core.NumBytes
	GPT4Pattern = tokenizer.GPT4Pattern
)

var (
	ErrInvalidVocabSize = core.ErrInvalidVocabSize
	ErrLengthMismatch   = core.ErrLengthMismatch
	ErrNegativeCount    = core.ErrNegativeCount
	ErrInvalidTokenID   = core.ErrInvalidTokenID
	ErrNotTrained       = tokenizer.ErrNotTrained
	ErrUnknownToken     = tokenizer.ErrUnknownToken
	ErrDuplicateToken   = tokenizer.ErrDuplicateToken
)

// NewWord copies ids into a Word.
func NewWord(ids []uint32) Word {
	return core.NewWord(ids)
}

// WordFromBytes maps every byte to its base id.
func WordFromBytes(b []byte) Word {
	return core.WordFromBytes(b)
}

// Train learns vocabSize-256 merges from words weighted by counts, rewriting
// the words in place.
func Train(words []Word, counts []int64, vocabSize uint32) (*MergeTable, error) {
	var t Trainer
	return t.Train(words, counts, vocabSize)
}

// NewTokenizer returns an untrained tokenizer; an empty pattern selects
// GPT4Pattern.
func NewTokenizer(pattern string, nfc bool) (*Tokenizer, error) {
	return tokenizer.New(pattern, nfc)
}

// LoadTokenizer reads a vocab.json and merges.txt pair.
func LoadTokenizer(vocabPath, mergesPath, pattern string, nfc bool) (*Tokenizer, error) {
	return tokenizer.LoadFromFiles(vocabPath, mergesPath, pattern, nfc)
}
