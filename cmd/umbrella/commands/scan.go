package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella"
	"github.com/umbrella-scan/umbrella/discover"
	"github.com/umbrella-scan/umbrella/internal/config"
	"github.com/umbrella-scan/umbrella/internal/output"
	"github.com/umbrella-scan/umbrella/internal/scanner"
	"github.com/umbrella-scan/umbrella/internal/state"
)

var (
	flagSets           []string
	flagSignatures     []string
	flagTimeout        time.Duration
	flagFailOnInfected bool
	flagStrict         bool
	flagVerbose        bool
	flagChanged        bool
	flagCache          bool
	flagStatePath      string
	flagAuto           bool
	flagMaxOpen        int
	flagDecode         bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Scan Maya scripts and scenes for known malware",
	Long: `Scan files, directories or glob patterns. Directories are walked
recursively, skipping binary files and anything matched by .umbrellaignore.

Exit status is 0 when nothing was found, 1 when an infected file was found
(or, with --strict, a file could not be read), and 2 on error.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if flagAuto && len(args) > 0 {
			return fmt.Errorf("--auto does not accept path arguments")
		}
		return nil
	},
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&flagSets, "set", nil, "Signature sets to use (default: file)")
	scanCmd.Flags().StringArrayVar(&flagSignatures, "signature", nil, "Extra regex signature (repeatable)")
	scanCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Per-file load timeout, e.g. 5s (default: none)")
	scanCmd.Flags().BoolVar(&flagFailOnInfected, "fail-on-infected", true, "Exit with code 1 when an infected file is found")
	scanCmd.Flags().BoolVar(&flagStrict, "strict", false, "Also exit with code 1 when a file could not be read")
	scanCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "List clean files and matched patterns")
	scanCmd.Flags().BoolVar(&flagChanged, "changed", false, "Only scan git-changed files (staged, unstaged, untracked)")
	scanCmd.Flags().BoolVar(&flagCache, "cache", false, "Reuse verdicts for files unchanged since the last scan")
	scanCmd.Flags().StringVar(&flagStatePath, "state-path", "", "Path to the --cache state file (default: ~/.umbrella/state.json)")
	scanCmd.Flags().BoolVar(&flagAuto, "auto", false, "Scan the Maya script locations found on this machine")
	scanCmd.Flags().IntVar(&flagMaxOpen, "max-open", 0, "Maximum files read at once (default: unlimited)")
	scanCmd.Flags().BoolVar(&flagDecode, "decode", false, "Also match inside base64 and hex blobs")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	configDir := "."
	if len(args) > 0 {
		configDir = configDirFor(args[0])
	}
	cfg := loadScanConfig(cmd, configDir)

	formatter, err := output.ForName(flagFormat, noColor(cmd), flagVerbose)
	if err != nil {
		return err
	}

	targets, err := scanTargets(cmd, args, cfg)
	if err != nil {
		return err
	}
	if targets == nil {
		return nil
	}

	opts, err := scanOptions(cfg)
	if err != nil {
		return err
	}

	var store *state.Store
	if flagCache {
		path := flagStatePath
		if path == "" {
			path = state.DefaultPath()
		}
		store = state.New(path)
		if err := store.Load(); err != nil {
			logger.Warn("loading state", "path", path, "err", err)
		}
		opts = append(opts, umbrella.WithCache(store))
	}

	sp := progressSpinner(cmd)
	if sp != nil {
		sp.Start("Scanning")
		opts = append(opts, umbrella.WithProgress(func(done, total int) {
			sp.Progress("Scanning", done, total)
		}))
	}

	ctx, cancel := contextWithInterrupt()
	defer cancel()

	result, err := umbrella.New(opts...).ScanPaths(ctx, targets)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	result.Target = scanLabel(args, cfg)

	if store != nil {
		if err := store.Save(); err != nil {
			logger.Warn("saving state", "path", store.Path(), "err", err)
		}
	}

	output.ToolVersion = Version
	if err := writeOutput(cmd, func(w io.Writer) error {
		return formatter.Format(w, result)
	}); err != nil {
		return err
	}

	return checkExitPolicy(result)
}

// loadScanConfig reads .umbrella.yml next to the first target. Explicit
// flags win over config values.
func loadScanConfig(cmd *cobra.Command, dir string) config.Config {
	cfg, err := config.Load(dir)
	if err != nil {
		logger.Warn("ignoring config", "err", err)
		return config.Config{}
	}
	flags := cmd.Flags()
	if !flags.Changed("format") && cfg.Format != "" {
		flagFormat = cfg.Format
	}
	if !flags.Changed("set") && len(cfg.Sets) > 0 {
		flagSets = cfg.Sets
	}
	if !flags.Changed("signatures-dir") && cfg.SignaturesDir != "" {
		flagSignaturesDir = cfg.SignaturesDir
	}
	if !flags.Changed("disable-signature") && len(cfg.DisabledSignatures) > 0 {
		flagDisableSignatures = cfg.DisabledSignatures
	}
	if !flags.Changed("engine") && cfg.Engine != "" {
		flagEngine = cfg.Engine
	}
	if !flags.Changed("workers") && cfg.Workers > 0 {
		flagWorkers = cfg.Workers
	}
	if !flags.Changed("timeout") {
		if d, err := cfg.TimeoutDuration(); err == nil && d > 0 {
			flagTimeout = d
		}
	}
	if !flags.Changed("fail-on-infected") && cfg.FailOnInfected != nil {
		flagFailOnInfected = *cfg.FailOnInfected
	}
	if !flags.Changed("strict") && cfg.Strict {
		flagStrict = true
	}
	if !flags.Changed("decode") && cfg.Decode {
		flagDecode = true
	}
	return cfg
}

// configDirFor returns the directory holding the config for a scan
// argument. Glob patterns are trimmed to their first literal parent; plain
// files are resolved by config.Load.
func configDirFor(arg string) string {
	for strings.ContainsAny(arg, "*?[") {
		parent := filepath.Dir(arg)
		if parent == arg {
			break
		}
		arg = parent
	}
	return arg
}

// scanTargets returns what to scan. A nil slice with no error means there
// is nothing to do and a message has already been printed.
func scanTargets(cmd *cobra.Command, args []string, cfg config.Config) ([]string, error) {
	targets := args
	switch {
	case flagAuto:
		discovered, err := discover.Scan()
		if err != nil {
			return nil, fmt.Errorf("discovery failed: %w", err)
		}
		if discovered.Empty() {
			fmt.Fprintln(cmd.ErrOrStderr(), "No Maya script locations found, nothing to scan.")
			return nil, nil
		}
		targets = discovered.Paths()
		fmt.Fprintf(cmd.ErrOrStderr(), "Discovered %d Maya script locations, scanning...\n\n", len(targets))
	case len(targets) == 0:
		targets = cfg.Paths
		if len(targets) == 0 {
			targets = []string{"."}
		}
	}

	if !flagChanged {
		return targets, nil
	}
	changed := []string{}
	for _, root := range targets {
		files, err := scanner.GitChangedFiles(root)
		if err != nil {
			return nil, fmt.Errorf("getting changed files: %w", err)
		}
		for _, f := range files {
			// deleted files still show up in the diff
			if _, err := os.Stat(f); err == nil {
				changed = append(changed, f)
			}
		}
	}
	return changed, nil
}

func scanOptions(cfg config.Config) ([]umbrella.Option, error) {
	opts, err := baseOptions()
	if err != nil {
		return nil, err
	}
	if sets := trimAll(flagSets); len(sets) > 0 {
		opts = append(opts, umbrella.WithSets(sets...))
	}
	sigs := append(append([]string(nil), cfg.Signatures...), flagSignatures...)
	if len(sigs) > 0 {
		opts = append(opts, umbrella.WithSignatures(sigs...))
	}
	if len(cfg.Ignore) > 0 {
		opts = append(opts, umbrella.WithIgnorePatterns(cfg.Ignore))
	}
	if flagTimeout > 0 {
		opts = append(opts, umbrella.WithTimeout(flagTimeout))
	}
	if flagMaxOpen > 0 {
		opts = append(opts, umbrella.WithLoadLimit(flagMaxOpen))
	}
	if flagDecode {
		opts = append(opts, umbrella.WithDecodeEmbedded(true))
	}
	return opts, nil
}

// progressSpinner returns a spinner on stderr for interactive terminal
// runs, or nil.
func progressSpinner(cmd *cobra.Command) *output.Spinner {
	if !strings.EqualFold(flagFormat, "terminal") {
		return nil
	}
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return output.NewSpinner(f)
}

func noColor(cmd *cobra.Command) bool {
	if flagNoColor || flagOutput != "" {
		return true
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return !ok || !output.ColorEnabled(f)
}

func scanLabel(args []string, cfg config.Config) string {
	switch {
	case flagAuto:
		return "(auto-discovered)"
	case len(args) > 0:
		return strings.Join(args, " ")
	case len(cfg.Paths) > 0:
		return strings.Join(cfg.Paths, " ")
	default:
		return "."
	}
}

func checkExitPolicy(result *umbrella.ScanResult) error {
	if flagFailOnInfected && result.Count(umbrella.StatusInfected) > 0 {
		return ErrFindings
	}
	if flagStrict && result.Count(umbrella.StatusUnscannable) > 0 {
		return ErrFindings
	}
	return nil
}

func contextWithInterrupt() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
