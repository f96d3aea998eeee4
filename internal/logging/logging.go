// Package logging builds the leveled logger shared by the CLI and the
// library, with an optional size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables consulted when options leave a value empty.
const (
	EnvLevel = "UMBRELLA_LOG_LEVEL"
	EnvRoot  = "UMBRELLA_LOG_ROOT"
	EnvName  = "UMBRELLA_LOG_NAME"
)

const (
	DefaultLevel   = "warn"
	DefaultLogName = "umbrella.log"

	maxSizeMB  = 5
	maxBackups = 7
)

// Options configures New.
type Options struct {
	// Level is a level name (debug, info, warn, error). Empty falls back to
	// UMBRELLA_LOG_LEVEL, then DefaultLevel.
	Level string
	// File is a log file path. Empty falls back to the UMBRELLA_LOG_ROOT
	// and UMBRELLA_LOG_NAME variables; with neither set no file is written.
	File string
	// Console receives human-readable output. Nil means os.Stderr.
	Console io.Writer
}

// New returns a logger writing to the console and, when configured, to a
// rotating file. The returned closer flushes and closes the file.
func New(opts Options) (*log.Logger, io.Closer, error) {
	levelName := firstNonEmpty(opts.Level, os.Getenv(EnvLevel), DefaultLevel)
	level, err := log.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	out := console
	path := firstNonEmpty(opts.File, FileFromEnv())
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		}
		out = io.MultiWriter(console, rotating)
		closer = rotating
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          "umbrella",
		ReportTimestamp: path != "",
	})
	return logger, closer, nil
}

// FileFromEnv returns the log file configured through the environment, or
// "" when UMBRELLA_LOG_ROOT is unset.
func FileFromEnv() string {
	root := os.Getenv(EnvRoot)
	if root == "" {
		return ""
	}
	return filepath.Join(root, firstNonEmpty(os.Getenv(EnvName), DefaultLogName))
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
