package tokenizer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bpetrain/internal/tokenizer/core"
)

const (
	VocabFile     = "vocab.json"
	MergesFile    = "merges.txt"
	mergesVersion = "#version: 0.2"
)

// WriteFiles exports the table in the GPT-2 layout: dir/vocab.json maps each
// token string to its id and dir/merges.txt lists the merged pairs in order.
func (t *Tokenizer) WriteFiles(dir string) error {
	if t.merges == nil {
		return ErrNotTrained
	}

	tokenBytes := t.merges.TokenBytes()
	tokenStrings := make([]string, len(tokenBytes))
	vocab := make(map[string]int, len(tokenBytes))
	for id, b := range tokenBytes {
		s := encodeTokenBytes(b)
		if prev, exists := vocab[s]; exists {
			return fmt.Errorf("%w: ids %d and %d are both %q", ErrDuplicateToken, prev, id, b)
		}
		vocab[s] = id
		tokenStrings[id] = s
	}

	var vocabBuf bytes.Buffer
	enc := json.NewEncoder(&vocabBuf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(vocab); err != nil {
		return fmt.Errorf("error while marshalling vocab: %w", err)
	}

	var mergesBuf bytes.Buffer
	mergesBuf.WriteString(mergesVersion + "\n")
	for p := range t.merges.All() {
		fmt.Fprintf(&mergesBuf, "%s %s\n", tokenStrings[p.A], tokenStrings[p.B])
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, VocabFile), vocabBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("error while writing vocab file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MergesFile), mergesBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("error while writing merges file: %w", err)
	}
	return nil
}

/*
LoadFromFiles builds a tokenizer from files written by WriteFiles.

	step 1: parse vocab.json into revVocab, checking the ids are dense and
	        that ids 0..255 are the raw bytes in order
	step 2: replay merges.txt; merge i must produce id 256+i and the vocab
	        entry for the concatenated string must be that id
*/
func LoadFromFiles(vocabPath, mergesPath, pattern string, nfc bool) (*Tokenizer, error) {
	t, err := New(pattern, nfc)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("error while reading vocab file: %w", err)
	}

	var vocab map[string]int
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("error while unmarshalling vocab: %w", err)
	}

	if _, err := buildRevVocab(vocab, len(vocab)); err != nil {
		return nil, err
	}

	f, err := os.Open(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("error while reading merges file: %w", err)
	}
	defer f.Close()

	// a merge line holds two tokens whose concatenation is also a token
	longest := 0
	for tok := range vocab {
		longest = max(longest, len(tok))
	}

	mt := core.NewMergeTable()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), max(bufio.MaxScanTokenSize, longest+2))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#version") {
			continue
		}

		left, right, ok := strings.Cut(line, " ")
		if !ok || strings.Contains(right, " ") {
			return nil, fmt.Errorf("merges line %d: want two tokens, got %q", lineNo, line)
		}

		a, okA := vocab[left]
		b, okB := vocab[right]
		if !okA || !okB {
			return nil, fmt.Errorf("merges line %d: %q uses a token missing from the vocab", lineNo, line)
		}

		want := uint32(mt.VocabSize())
		if id, ok := vocab[left+right]; !ok || uint32(id) != want {
			return nil, fmt.Errorf("merges line %d: %q should produce id %d", lineNo, left+right, want)
		}

		if err := mt.Append(core.Merge{Pair: core.Pair{A: uint32(a), B: uint32(b)}, ID: want}); err != nil {
			return nil, fmt.Errorf("merges line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error while reading merges file: %w", err)
	}

	if mt.VocabSize() != len(vocab) {
		return nil, fmt.Errorf("vocab has %d tokens but merges only account for %d", len(vocab), mt.VocabSize())
	}

	slog.Debug("vocab loaded", "tokens", len(vocab), "merges", mt.Len())
	t.setMerges(mt)
	return t, nil
}

// buildRevVocab takes the parsed vocab.json (tokenString -> id) and returns
// revVocab[id] = raw bytes for that token id.
func buildRevVocab(vocab map[string]int, vocabSize int) ([][]byte, error) {
	if vocabSize < core.NumBytes {
		return nil, fmt.Errorf("vocab has %d tokens, need at least %d", vocabSize, core.NumBytes)
	}

	revVocab := make([][]byte, vocabSize)
	for tokenStr, id := range vocab {
		if id < 0 || id >= vocabSize {
			return nil, fmt.Errorf("vocab not dense, token id out of range: %d", id)
		}

		tokenBytes, err := decodeTokenString(tokenStr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode token %q at index %d: %w", tokenStr, id, err)
		}
		if len(tokenBytes) == 0 {
			return nil, fmt.Errorf("decoded empty byte sequence for token id %d", id)
		}
		revVocab[id] = tokenBytes
	}

	// the map has vocabSize keys and ids in range, so an unset slot means a
	// repeated id
	for i := range vocabSize {
		if len(revVocab[i]) == 0 {
			return nil, fmt.Errorf("vocab not dense and missing %d", i)
		}
	}

	for b := range core.NumBytes {
		if len(revVocab[b]) != 1 || revVocab[b][0] != byte(b) {
			return nil, fmt.Errorf("token id %d should be the single byte 0x%02x", b, b)
		}
	}

	seen := make(map[string]int, vocabSize)
	for id, b := range revVocab {
		k := string(b)
		if prev, exists := seen[k]; exists {
			return nil, fmt.Errorf("%w: check id %d and %d", ErrDuplicateToken, prev, id)
		}
		seen[k] = id
	}
	return revVocab, nil
}

// encodeTokenBytes renders raw token bytes as a vocab.json key, one stand-in
// rune per byte.
func encodeTokenBytes(b []byte) string {
	enc, _ := byteTables()
	var sb strings.Builder
	for _, c := range b {
		sb.WriteRune(enc[c])
	}
	return sb.String()
}

// decodeTokenString turns a vocab.json key back into the raw bytes that token
// represents. Runes with a byte stand-in decode to that byte; any other rune is
// taken literally as its UTF-8 encoding.
func decodeTokenString(s string) ([]byte, error) {
	_, dec := byteTables()
	var out []byte

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("invalid utf8 in token string at %q", s)
		}

		if b, ok := dec[r]; ok {
			out = append(out, b)
		} else {
			var tmp [utf8.UTFMax]byte
			n := utf8.EncodeRune(tmp[:], r)
			out = append(out, tmp[:n]...)
		}

		s = s[size:]
	}

	return out, nil
}

// byteTables replays GPT-2's byte to printable rune mapping: printable latin-1
// bytes stand for themselves and the other bytes get runes from 256 upwards,
// so 0x20 (space) becomes 'Ġ'.
var byteTables = sync.OnceValues(func() ([256]rune, map[rune]byte) {
	var enc [256]rune
	printable := func(b int) bool {
		return (b >= 33 && b <= 126) || (b >= 161 && b <= 172) || (b >= 174 && b <= 255)
	}

	next := rune(256)
	for b := range 256 {
		if printable(b) {
			enc[b] = rune(b)
		} else {
			enc[b] = next
			next++
		}
	}

	dec := make(map[rune]byte, 256)
	for b, r := range enc {
		dec[r] = byte(b)
	}
	return enc, dec
})
