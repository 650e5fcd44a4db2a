package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/illarion/passwatch/internal/backup"
	"github.com/illarion/passwatch/internal/repo"
	"github.com/illarion/passwatch/internal/store"
)

// Environment variables recognized by every command
const (
	EnvPassphrase = "PASSWATCH_PASSPHRASE" // non-interactive passphrase
	EnvDBPath     = "PASSWATCH_DB"         // database location override
	EnvDebug      = "PASSWATCH_DEBUG"      // set to 1 for debug logging
)

// DefaultDBName is the database file created in the user's home directory
const DefaultDBName = ".passwatch.db"

// StorePath resolves the database location: $PASSWATCH_DB if set,
// otherwise ~/.passwatch.db
func StorePath() (string, error) {
	if path := os.Getenv(EnvDBPath); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultDBName), nil
}

// NewLogger builds the CLI logger: console output on stderr at warn level,
// debug when $PASSWATCH_DEBUG=1
func NewLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if os.Getenv(EnvDebug) == "1" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// HandleError prints common errors consistently and exits
func HandleError(err error) {
	var verr *backup.ValidationError
	switch {
	case errors.Is(err, store.ErrWrongPassphrase):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, store.ErrPersistFailed):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "The change was applied in memory only; check disk space and retry\n")
	case errors.Is(err, repo.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: no account with that id\n")
		fmt.Fprintf(os.Stderr, "Use 'passwatch list' to see account ids\n")
	case errors.Is(err, repo.ErrServiceNameRequired):
		fmt.Fprintf(os.Stderr, "Error: service name must not be empty\n")
	case errors.As(err, &verr):
		fmt.Fprintf(os.Stderr, "Error: invalid backup: %s\n", verr)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
