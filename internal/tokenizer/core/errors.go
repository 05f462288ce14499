package core

import "errors"

var (
	ErrInvalidVocabSize = errors.New("vocab size must be at least 256")
	ErrLengthMismatch   = errors.New("words and counts differ in length")
	ErrNegativeCount    = errors.New("word count is negative")
	ErrInvalidTokenID   = errors.New("initial token id is not a byte")
)
