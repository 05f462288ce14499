package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bpetrain/internal/envconfig"
	"github.com/bpetrain/internal/tokenizer"
)

const (
	formatJSON = "json"
	formatCBOR = "cbor"

	snapshotFile = "tokenizer.cbor"

	// longest line accepted from training input
	maxLineSize = 16 << 20
)

var errNoModel = errors.New("pass --snapshot, or both --vocab and --merges")

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bpetrain",
		Short: "Train and apply byte-level BPE vocabularies",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	cobra.EnableCommandSorting = false

	trainCmd := &cobra.Command{
		Use:   "train [FILE...]",
		Short: "Learn merges from text, one training text per line",
		Long:  "Learn merges from text files, or from stdin when no file is given. Each line is one training text.",
		RunE:  TrainHandler,
	}

	trainCmd.Flags().Uint32("vocab-size", 4096, "Target vocabulary size, 256 byte tokens included")
	trainCmd.Flags().StringP("out", "o", ".", "Output directory")
	trainCmd.Flags().String("format", formatJSON, "Output format: json (vocab.json + merges.txt) or cbor (tokenizer.cbor)")
	trainCmd.Flags().Int("workers", envconfig.NumWorkers, "Goroutines for counting")
	trainCmd.Flags().Int("buffer-size", envconfig.BufferSize, "Texts counted per batch")
	addPatternFlags(trainCmd)

	encodeCmd := &cobra.Command{
		Use:   "encode [TEXT...]",
		Short: "Encode text with a trained vocabulary",
		Long:  "Encode the arguments joined by spaces, or stdin when no argument is given, and print the token ids.",
		RunE:  EncodeHandler,
	}
	addModelFlags(encodeCmd)
	addPatternFlags(encodeCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a trained vocabulary and list its first merges",
		Args:  cobra.NoArgs,
		RunE:  InspectHandler,
	}
	addModelFlags(inspectCmd)
	addPatternFlags(inspectCmd)
	inspectCmd.Flags().Int("top", 20, "Number of merges to list")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show the environment settings",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}

	rootCmd.AddCommand(trainCmd, encodeCmd, inspectCmd, envCmd)

	return rootCmd
}

func addPatternFlags(cmd *cobra.Command) {
	cmd.Flags().String("pattern", envconfig.Pattern, "Split pattern (default GPT-4)")
	cmd.Flags().Bool("nfc", envconfig.NFC, "NFC-normalize text before splitting")
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("vocab", "", "Path to vocab.json")
	cmd.Flags().String("merges", "", "Path to merges.txt")
	cmd.Flags().String("snapshot", "", "Path to a tokenizer.cbor snapshot")
}

func TrainHandler(cmd *cobra.Command, args []string) error {
	vocabSize, err := cmd.Flags().GetUint32("vocab-size")
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != formatJSON && format != formatCBOR {
		return fmt.Errorf("unknown format %q, want %s or %s", format, formatJSON, formatCBOR)
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}
	bufferSize, err := cmd.Flags().GetInt("buffer-size")
	if err != nil {
		return err
	}

	tok, err := newTokenizer(cmd)
	if err != nil {
		return err
	}

	prev := slog.Default()
	slog.SetDefault(prev.With("run", uuid.NewString()))
	defer slog.SetDefault(prev)

	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)

	texts := readLines(cmd.InOrStdin(), args, cancel)
	opts := tokenizer.TrainOptions{BufferSize: bufferSize, Workers: workers}
	if err := tok.TrainFromIterator(ctx, texts, vocabSize, opts); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}

	switch format {
	case formatCBOR:
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		path := filepath.Join(out, snapshotFile)
		if err := writeSnapshot(tok, path); err != nil {
			return err
		}
		slog.Info("wrote snapshot", "path", path)
	default:
		if err := tok.WriteFiles(out); err != nil {
			return err
		}
		slog.Info("wrote vocabulary", "dir", out)
	}

	mt := tok.Merges()
	fmt.Fprintf(cmd.OutOrStdout(), "learned %d merges, vocabulary size %d\n", mt.Len(), mt.VocabSize())
	return nil
}

func EncodeHandler(cmd *cobra.Command, args []string) error {
	tok, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = string(data)
	}

	ids, err := tok.Encode(text)
	if err != nil {
		return err
	}

	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = strconv.FormatUint(uint64(id), 10)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(fields, " "))
	return nil
}

func InspectHandler(cmd *cobra.Command, args []string) error {
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}

	tok, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	mt := tok.Merges()
	ranks := tok.MergeableRanks()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "vocabulary size %d, %d merges\n", mt.VocabSize(), mt.Len())

	var data [][]string
	for _, m := range mt.Merges() {
		if len(data) >= top {
			break
		}
		count := "-"
		if m.Count > 0 {
			count = strconv.FormatInt(m.Count, 10)
		}
		data = append(data, []string{
			strconv.FormatUint(uint64(m.ID), 10),
			strconv.Quote(string(ranks[m.Pair.A])),
			strconv.Quote(string(ranks[m.Pair.B])),
			strconv.Quote(string(ranks[m.ID])),
			count,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "LEFT", "RIGHT", "TOKEN", "COUNT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func EnvHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()

	var data [][]string
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		v := vars[name]
		data = append(data, []string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "VALUE", "DESCRIPTION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func newTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, error) {
	pattern, err := cmd.Flags().GetString("pattern")
	if err != nil {
		return nil, err
	}
	nfc, err := cmd.Flags().GetBool("nfc")
	if err != nil {
		return nil, err
	}
	return tokenizer.New(pattern, nfc)
}

// loadTokenizer reads the model named by --snapshot, or by --vocab and
// --merges. The pattern flags only apply to the GPT-2 layout; a snapshot
// carries its own.
func loadTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, error) {
	snapshot, _ := cmd.Flags().GetString("snapshot")
	vocab, _ := cmd.Flags().GetString("vocab")
	merges, _ := cmd.Flags().GetString("merges")

	switch {
	case snapshot != "":
		f, err := os.Open(snapshot)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return tokenizer.LoadSnapshot(bufio.NewReader(f))
	case vocab != "" && merges != "":
		pattern, err := cmd.Flags().GetString("pattern")
		if err != nil {
			return nil, err
		}
		nfc, err := cmd.Flags().GetBool("nfc")
		if err != nil {
			return nil, err
		}
		return tokenizer.LoadFromFiles(vocab, merges, pattern, nfc)
	default:
		return nil, errNoModel
	}
}

func writeSnapshot(tok *tokenizer.Tokenizer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := tok.SaveSnapshot(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// readLines yields the lines of every file in paths, or of stdin when paths is
// empty. A read error stops the sequence and is handed to fail, so the
// consumer sees it through its context before the partial input is used.
func readLines(stdin io.Reader, paths []string, fail context.CancelCauseFunc) iter.Seq[string] {
	scan := func(r io.Reader, yield func(string) bool) bool {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return false
			}
		}
		if err := scanner.Err(); err != nil {
			fail(err)
			return false
		}
		return true
	}

	return func(yield func(string) bool) {
		if len(paths) == 0 {
			scan(stdin, yield)
			return
		}
		for _, path := range paths {
			f, err := os.Open(path)
			if err != nil {
				fail(err)
				return
			}
			ok := scan(f, yield)
			f.Close()
			if !ok {
				return
			}
		}
	}
}
