package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/bpetrain/internal/logutil"
)

const defaultBufferSize = 8192

var (
	// Set via BPETRAIN_DEBUG in the environment, 0 off, 1 debug, 2 trace
	Debug int
	// Set via BPETRAIN_NUM_WORKERS in the environment
	NumWorkers int
	// Set via BPETRAIN_BUFFER_SIZE in the environment
	BufferSize int
	// Set via BPETRAIN_PATTERN in the environment, empty selects the GPT-4 pattern
	Pattern string
	// Set via BPETRAIN_NFC in the environment
	NFC bool
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BPETRAIN_DEBUG":       {"BPETRAIN_DEBUG", Debug, "Show additional debug information (BPETRAIN_DEBUG=1, or 2 for trace)"},
		"BPETRAIN_NUM_WORKERS": {"BPETRAIN_NUM_WORKERS", NumWorkers, "Goroutines used to count chunks and pairs (default GOMAXPROCS)"},
		"BPETRAIN_BUFFER_SIZE": {"BPETRAIN_BUFFER_SIZE", BufferSize, fmt.Sprintf("Texts counted per batch while training (default %d)", defaultBufferSize)},
		"BPETRAIN_PATTERN":     {"BPETRAIN_PATTERN", Pattern, "Split pattern applied before training and encoding (default GPT-4)"},
		"BPETRAIN_NFC":         {"BPETRAIN_NFC", NFC, "NFC-normalize text before splitting"},
	}
}

// LogLevel maps BPETRAIN_DEBUG to a slog level.
func LogLevel() slog.Level {
	switch {
	case Debug >= 2:
		return logutil.LevelTrace
	case Debug == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = 0
	NumWorkers = runtime.GOMAXPROCS(0)
	BufferSize = defaultBufferSize
	Pattern = ""
	NFC = false

	if debug := clean("BPETRAIN_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil {
			Debug = max(n, 0)
		} else if d, err := strconv.ParseBool(debug); err == nil {
			if d {
				Debug = 1
			}
		} else {
			Debug = 1
		}
	}

	if nw := clean("BPETRAIN_NUM_WORKERS"); nw != "" {
		val, err := strconv.Atoi(nw)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "BPETRAIN_NUM_WORKERS", nw, "error", err)
		} else {
			NumWorkers = val
		}
	}

	if bs := clean("BPETRAIN_BUFFER_SIZE"); bs != "" {
		val, err := strconv.Atoi(bs)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "BPETRAIN_BUFFER_SIZE", bs, "error", err)
		} else {
			BufferSize = val
		}
	}

	// the pattern is taken verbatim, quotes and spaces can be part of it
	Pattern = os.Getenv("BPETRAIN_PATTERN")

	if nfc := clean("BPETRAIN_NFC"); nfc != "" {
		d, err := strconv.ParseBool(nfc)
		if err != nil {
			slog.Error("invalid setting, ignoring", "BPETRAIN_NFC", nfc, "error", err)
		} else {
			NFC = d
		}
	}
}
