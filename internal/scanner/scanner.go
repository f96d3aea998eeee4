// Package scanner orchestrates file discovery, concurrent loading, and
// signature matching, and turns per-file load failures into unscannable
// outcomes instead of failing the batch.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"

	"github.com/umbrella-scan/umbrella/internal/detector"
	"github.com/umbrella-scan/umbrella/internal/loader"
	"github.com/umbrella-scan/umbrella/internal/specimen"
)

// Cache remembers verdicts across runs. Implementations must be safe for
// concurrent use.
type Cache interface {
	Lookup(path, digest string) (Status, string, bool)
	Remember(path, digest string, status Status, signature string)
}

// Scanner orchestrates the scanning process.
type Scanner struct {
	loader         loader.Loader[specimen.Typed]
	stat           func(path string) (os.FileInfo, error)
	workers        int
	loadLimit      int
	timeout        time.Duration
	ignorePatterns []string
	cache          Cache
	logger         *log.Logger
	onProgress     func(done, total int)
}

// New creates a new Scanner with the given number of detection workers.
// If workers <= 0, it defaults to runtime.NumCPU().
func New(workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{
		loader:  loader.NewFileLoader().Typed(),
		stat:    os.Stat,
		workers: workers,
		logger:  log.New(io.Discard),
	}
}

// SetLoader replaces the file loader.
func (s *Scanner) SetLoader(l loader.Loader[specimen.Typed]) {
	s.loader = l
}

// SetFilesystem reads files and stats Scan roots through fsys. Directory
// walks still use the host filesystem.
func (s *Scanner) SetFilesystem(fsys billy.Basic) {
	files := loader.NewFileLoader(loader.WithFilesystem(fsys))
	s.loader = files.Typed()
	s.stat = files.Stat
}

// SetLoadLimit caps concurrent file loads. Zero loads every file at once.
func (s *Scanner) SetLoadLimit(n int) {
	s.loadLimit = n
}

// SetTimeout bounds each file load. Zero disables the bound.
func (s *Scanner) SetTimeout(d time.Duration) {
	s.timeout = d
}

// SetIgnorePatterns sets additional file ignore patterns from config.
func (s *Scanner) SetIgnorePatterns(patterns []string) {
	s.ignorePatterns = patterns
}

// SetCache enables verdict reuse for unchanged files.
func (s *Scanner) SetCache(c Cache) {
	s.cache = c
}

// SetLogger sets the logger receiving per-file diagnostics.
func (s *Scanner) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetProgress registers a callback run after each file is evaluated.
// It may be called from several goroutines at once.
func (s *Scanner) SetProgress(fn func(done, total int)) {
	s.onProgress = fn
}

// Scan performs a full scan of the given path. The path can be a directory
// (walked recursively) or a single file.
func (s *Scanner) Scan(ctx context.Context, root string, set *detector.Set) (*ScanResult, error) {
	info, err := s.stat(root)
	if err != nil {
		return nil, err
	}
	paths := []string{root}
	if info.IsDir() {
		discovery := &TargetDiscovery{IgnorePatterns: s.ignorePatterns}
		if paths, err = discovery.Discover(root); err != nil {
			return nil, err
		}
	}

	result, err := s.ScanPaths(ctx, paths, set)
	if err != nil {
		return nil, err
	}
	result.Target = root
	return result, nil
}

// Resolve expands command-line arguments into file paths: directories are
// discovered, glob patterns are expanded, and anything else is kept as
// given so a missing file still gets an outcome of its own. Duplicates are
// dropped, first occurrence wins.
func (s *Scanner) Resolve(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	discovery := &TargetDiscovery{IgnorePatterns: s.ignorePatterns}
	for _, arg := range args {
		candidates := []string{arg}
		if strings.ContainsAny(arg, "*?[") {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) > 0 {
				candidates = matches
			}
		}
		for _, c := range candidates {
			info, err := os.Stat(c)
			if err != nil || !info.IsDir() {
				add(c)
				continue
			}
			found, err := discovery.Discover(c)
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
		}
	}
	return out, nil
}

// ScanPaths loads every path concurrently and matches each loaded file
// against set. Outcomes are in input order. A path that cannot be loaded
// yields StatusUnscannable and does not affect the others; the only errors
// returned are a nil set or a cancelled context.
func (s *Scanner) ScanPaths(ctx context.Context, paths []string, set *detector.Set) (*ScanResult, error) {
	if set == nil {
		return nil, errors.New("scanner: nil signature set")
	}
	start := time.Now()

	loaded := loader.MultipleLoad(ctx, s.loader, paths,
		loader.WithLimit(s.loadLimit),
		loader.WithTimeout(s.timeout),
	)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Fan-out loaded files to workers
	outcomes := make([]Outcome, len(loaded))
	idxCh := make(chan int, len(loaded))
	for i := range loaded {
		idxCh <- i
	}
	close(idxCh)

	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)
	for range min(s.workers, max(len(loaded), 1)) {
		wg.Go(func() {
			for i := range idxCh {
				outcomes[i] = s.evaluate(loaded[i], set)
				n := done.Add(1)
				if s.onProgress != nil {
					s.onProgress(int(n), len(loaded))
				}
			}
		})
	}
	wg.Wait()

	return &ScanResult{
		Outcomes:         outcomes,
		FilesScanned:     len(paths),
		SignaturesLoaded: set.Len(),
		Duration:         time.Since(start),
	}, nil
}

func (s *Scanner) evaluate(r loader.Result[specimen.Typed], set *detector.Set) Outcome {
	o := Outcome{Path: r.Path}
	if r.Err != nil {
		code := loader.CodeOf(r.Err)
		s.logger.Warn("file not scanned", "path", r.Path, "code", code, "err", r.Err)
		o.Status = StatusUnscannable
		o.Err = r.Err
		o.Error = r.Err.Error()
		o.ErrorCode = string(code)
		return o
	}

	typed := r.Value
	o.MIME = typed.MIME
	if typed.Text != nil {
		o.Encoding = string(typed.Text.Encoding())
	}

	var digest string
	if s.cache != nil && typed.Text != nil {
		digest = contentDigest(set, typed.Text)
		if status, sig, ok := s.cache.Lookup(r.Path, digest); ok {
			o.Status, o.Signature, o.Cached = status, sig, true
			return o
		}
	}

	if hit, ok := set.Find(typed.Specimen()); ok {
		o.Status = StatusInfected
		o.Signature = hit.Signature.Label()
		o.Pattern = hit.Signature.Pattern
		o.Line = hit.Line
		o.Excerpt = hit.Excerpt
		o.Decoded = hit.Decoded
		s.logger.Info("infected file", "path", r.Path, "signature", o.Signature, "line", o.Line)
	} else {
		o.Status = StatusClean
		s.logger.Debug("clean file", "path", r.Path)
	}

	if digest != "" {
		s.cache.Remember(r.Path, digest, o.Status, o.Signature)
	}
	return o
}

func contentDigest(set *detector.Set, text *specimen.Text) string {
	h := sha256.New()
	io.WriteString(h, set.Digest())
	h.Write([]byte{0})
	io.WriteString(h, text.String())
	return hex.EncodeToString(h.Sum(nil))
}
