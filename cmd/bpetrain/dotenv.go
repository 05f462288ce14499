package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// maxDotEnvDepth is how many directories, starting at the working directory,
// are searched for a .env file.
const maxDotEnvDepth = 5

// loadDotEnv loads the first .env found in dir or its parents. Variables that
// are already set keep their value. A missing file is not an error.
func loadDotEnv(dir string) (string, error) {
	for range maxDotEnvDepth {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("could not load %s: %w", envPath, err)
			}
			return envPath, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to check if .env file exists: %w", err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}
