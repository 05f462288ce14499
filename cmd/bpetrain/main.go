package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpetrain/internal/envconfig"
	"github.com/bpetrain/internal/logutil"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	envPath, err := loadDotEnv(cwd)
	if err != nil {
		log.Fatal(err)
	}

	// init already ran against the bare environment
	envconfig.LoadConfig()
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	if envPath != "" {
		slog.Debug("loaded environment", "path", envPath)
	}

	cobra.CheckErr(NewCLI().ExecuteContext(context.Background()))
}
