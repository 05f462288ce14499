package bpetrain

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrain(t *testing.T) {
	words := []Word{NewWord([]uint32{97, 98}), NewWord([]uint32{97, 98, 99})}
	mt, err := Train(words, []int64{5, 3}, 257)
	require.NoError(t, err)

	id, ok := mt.Lookup(Pair{A: 97, B: 98})
	require.True(t, ok)
	assert.Equal(t, uint32(NumBytes), id)

	_, err = Train(nil, nil, 10)
	require.ErrorIs(t, err, ErrInvalidVocabSize)
}

func TestTokenizer(t *testing.T) {
	tok, err := NewTokenizer("", false)
	require.NoError(t, err)
	assert.Equal(t, GPT4Pattern, tok.Pattern())

	_, err = tok.Encode("hi")
	require.ErrorIs(t, err, ErrNotTrained)

	texts := slices.Values([]string{"hello hello hello", "help the hello"})
	require.NoError(t, tok.TrainFromIterator(context.Background(), texts, 262, TrainOptions{}))

	ids, err := tok.Encode("hello")
	require.NoError(t, err)
	out, err := tok.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	dir := t.TempDir()
	require.NoError(t, tok.WriteFiles(dir))
	loaded, err := LoadTokenizer(filepath.Join(dir, "vocab.json"), filepath.Join(dir, "merges.txt"), "", false)
	require.NoError(t, err)
	assert.Equal(t, tok.Merges().Len(), loaded.Merges().Len())
}
