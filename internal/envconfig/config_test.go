package envconfig

import (
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpetrain/internal/logutil"
)

func TestConfig(t *testing.T) {
	t.Setenv("BPETRAIN_DEBUG", "")
	LoadConfig()
	require.Equal(t, 0, Debug)
	require.Equal(t, slog.LevelInfo, LogLevel())

	t.Setenv("BPETRAIN_DEBUG", "false")
	LoadConfig()
	require.Equal(t, 0, Debug)

	t.Setenv("BPETRAIN_DEBUG", "1")
	LoadConfig()
	require.Equal(t, slog.LevelDebug, LogLevel())

	t.Setenv("BPETRAIN_DEBUG", "true")
	LoadConfig()
	require.Equal(t, slog.LevelDebug, LogLevel())

	t.Setenv("BPETRAIN_DEBUG", "2")
	LoadConfig()
	require.Equal(t, logutil.LevelTrace, LogLevel())
}

func TestDefaults(t *testing.T) {
	for _, k := range []string{"BPETRAIN_DEBUG", "BPETRAIN_NUM_WORKERS", "BPETRAIN_BUFFER_SIZE", "BPETRAIN_PATTERN", "BPETRAIN_NFC"} {
		t.Setenv(k, "")
	}
	LoadConfig()

	assert.Equal(t, runtime.GOMAXPROCS(0), NumWorkers)
	assert.Equal(t, 8192, BufferSize)
	assert.Empty(t, Pattern)
	assert.False(t, NFC)
}

func TestNumbers(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)
	cases := map[string]struct {
		value   string
		workers int
		buffer  int
	}{
		"valid":    {"4", 4, 4},
		"quoted":   {`"6"`, 6, 6},
		"zero":     {"0", procs, 8192},
		"negative": {"-3", procs, 8192},
		"garbage":  {"lots", procs, 8192},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("BPETRAIN_NUM_WORKERS", tt.value)
			t.Setenv("BPETRAIN_BUFFER_SIZE", tt.value)
			LoadConfig()
			assert.Equal(t, tt.workers, NumWorkers)
			assert.Equal(t, tt.buffer, BufferSize)
		})
	}
}

func TestPatternAndNFC(t *testing.T) {
	t.Setenv("BPETRAIN_PATTERN", ` ?\w+|\s+`)
	t.Setenv("BPETRAIN_NFC", "1")
	LoadConfig()
	assert.Equal(t, ` ?\w+|\s+`, Pattern)
	assert.True(t, NFC)

	t.Setenv("BPETRAIN_NFC", "maybe")
	LoadConfig()
	assert.False(t, NFC)
}

func TestAsMap(t *testing.T) {
	t.Setenv("BPETRAIN_NUM_WORKERS", "3")
	LoadConfig()

	m := AsMap()
	require.Contains(t, m, "BPETRAIN_NUM_WORKERS")
	assert.Equal(t, 3, m["BPETRAIN_NUM_WORKERS"].Value)
	for k, v := range m {
		assert.Equal(t, k, v.Name)
		assert.NotEmpty(t, v.Description)
	}
}
