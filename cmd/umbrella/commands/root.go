package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella"
	"github.com/umbrella-scan/umbrella/internal/logging"
)

var (
	flagFormat            string
	flagOutput            string
	flagWorkers           int
	flagSignaturesDir     string
	flagNoColor           bool
	flagDisableSignatures []string
	flagEngine            string
	flagLogLevel          string
	flagLogFile           string
)

// ErrFindings is returned when a scan completes but its results fail the
// exit policy. main maps it to exit status 1.
var ErrFindings = errors.New("findings reported")

var (
	logger    = logging.Discard()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "umbrella",
	Short: "Malware scanner for Maya scripts and scenes",
	Long: `Umbrella checks Maya scripts (.py, .mel) and scenes (.ma) against regular
expression signatures of known Maya malware, such as the "vaccine" and
"leukocyte" script-node worms.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "terminal", "Output format (terminal, json, sarif, markdown, html)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "Number of matching goroutines (default: NumCPU)")
	rootCmd.PersistentFlags().StringVar(&flagSignaturesDir, "signatures-dir", "", "Directory of additional YAML signatures")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringSliceVar(&flagDisableSignatures, "disable-signature", nil, "Signature IDs to disable (comma-separated, repeatable)")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "re2", "Regex engine (re2, pcre)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); default $"+logging.EnvLevel+" or warn")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also write logs to this file, rotated by size")
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}()
	return rootCmd.Execute()
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	l, closer, err := logging.New(logging.Options{
		Level:   flagLogLevel,
		File:    flagLogFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
	logger, logCloser = l, closer

	checkPathHint(cmd.ErrOrStderr())
	return nil
}

// baseOptions turns the persistent flags into scanner options.
func baseOptions() ([]umbrella.Option, error) {
	engine, err := umbrella.ParseEngine(flagEngine)
	if err != nil {
		return nil, fmt.Errorf("invalid --engine: %w", err)
	}
	opts := []umbrella.Option{
		umbrella.WithEngine(engine),
		umbrella.WithWorkers(flagWorkers),
		umbrella.WithLogger(logger),
	}
	if flagSignaturesDir != "" {
		opts = append(opts, umbrella.WithCustomSignatures(flagSignaturesDir))
	}
	if ids := trimAll(flagDisableSignatures); len(ids) > 0 {
		opts = append(opts, umbrella.WithDisabledSignatures(ids...))
	}
	return opts, nil
}

// writeOutput calls write with stdout, or with the --output file.
func writeOutput(cmd *cobra.Command, write func(w io.Writer) error) error {
	if flagOutput == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(flagOutput)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func isJSON() bool {
	return strings.EqualFold(flagFormat, "json")
}

func trimAll(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
