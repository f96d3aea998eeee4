// Package umbrella scans Maya script files (.py, .mel, .ma and friends)
// for known malware by matching their decoded text against regular
// expression signatures.
//
// The package-level functions are one-shot conveniences. Long-lived callers
// should build a Scanner with New and reuse it: the Scanner owns the file
// loader, concurrency limits, regex engine and logger.
//
// For the CLI tool, see cmd/umbrella/.
package umbrella

import (
	"context"
	"fmt"
	"strings"

	"github.com/umbrella-scan/umbrella/internal/detector"
	"github.com/umbrella-scan/umbrella/internal/logging"
	"github.com/umbrella-scan/umbrella/internal/scanner"
	"github.com/umbrella-scan/umbrella/internal/signatures"
	"github.com/umbrella-scan/umbrella/internal/specimen"
	"github.com/umbrella-scan/umbrella/internal/types"
)

// Re-export core types so consumers don't need to import internal packages.
type (
	Status     = types.Status
	Outcome    = types.Outcome
	ScanResult = types.ScanResult
	Signature  = detector.Signature
	Engine     = detector.Engine
	Cache      = scanner.Cache
)

const (
	StatusClean       = types.StatusClean
	StatusInfected    = types.StatusInfected
	StatusUnscannable = types.StatusUnscannable

	EngineRE2  = detector.EngineRE2
	EnginePCRE = detector.EnginePCRE
)

// ErrInvalidSignature is matched by errors.Is for any error caused by a
// signature that does not compile.
var ErrInvalidSignature = detector.ErrInvalidSignature

// ParseEngine converts an engine name (re2, pcre) to an Engine. The empty
// string selects EngineRE2.
func ParseEngine(name string) (Engine, error) {
	return detector.ParseEngine(name)
}

// SignatureInfo is summary metadata about a catalog signature.
type SignatureInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Sets    []string `json:"sets"`
	Pattern string   `json:"pattern"`
}

// SignatureDetail is the full catalog entry, including examples.
type SignatureDetail struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Sets           []string `json:"sets"`
	Pattern        string   `json:"pattern"`
	Reference      string   `json:"reference,omitempty"`
	TruePositives  []string `json:"true_positives"`
	FalsePositives []string `json:"false_positives"`

	// SelfTestFailures lists examples the pattern gets wrong.
	SelfTestFailures []string `json:"self_test_failures,omitempty"`
}

// Scanner checks files against signatures. It is safe for concurrent use.
type Scanner struct {
	cfg   *scanConfig
	inner *scanner.Scanner
}

// New builds a Scanner from opts.
func New(opts ...Option) *Scanner {
	cfg := applyOpts(opts)

	inner := scanner.New(cfg.workers)
	inner.SetLogger(cfg.logger)
	inner.SetLoadLimit(cfg.loadLimit)
	inner.SetTimeout(cfg.timeout)
	if cfg.fs != nil {
		inner.SetFilesystem(cfg.fs)
	}
	if len(cfg.ignorePatterns) > 0 {
		inner.SetIgnorePatterns(cfg.ignorePatterns)
	}
	if cfg.cache != nil {
		inner.SetCache(cfg.cache)
	}
	if cfg.progress != nil {
		inner.SetProgress(cfg.progress)
	}
	return &Scanner{cfg: cfg, inner: inner}
}

// CheckVirusFromFile reports whether the file at path matches any of the
// signature patterns. A file that cannot be read is reported clean. The
// only error is an invalid signature.
func (s *Scanner) CheckVirusFromFile(ctx context.Context, path string, signatures []string) (bool, error) {
	verdicts, err := s.CheckVirusFromFiles(ctx, []string{path}, signatures)
	if err != nil {
		return false, err
	}
	return verdicts[0], nil
}

// CheckVirusFromFiles checks every path concurrently. The result has one
// verdict per path, in input order; unreadable files are reported clean.
func (s *Scanner) CheckVirusFromFiles(ctx context.Context, paths, signatures []string) ([]bool, error) {
	outcomes, err := s.ScanFiles(ctx, paths, signatures)
	if err != nil {
		return nil, err
	}
	verdicts := make([]bool, len(outcomes))
	for i, o := range outcomes {
		verdicts[i] = o.Infected()
	}
	return verdicts, nil
}

// ScanFiles is CheckVirusFromFiles with the full outcome for each path,
// which separates unreadable files (StatusUnscannable) from clean ones.
func (s *Scanner) ScanFiles(ctx context.Context, paths, signatures []string) ([]Outcome, error) {
	set, err := detector.Compile(detector.Patterns(signatures...), s.cfg.compileOptions()...)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	result, err := s.inner.ScanPaths(ctx, paths, set)
	if err != nil {
		return nil, err
	}
	return result.Outcomes, nil
}

// Scan scans a file or directory with the catalog signatures selected by
// the Scanner's options.
func (s *Scanner) Scan(ctx context.Context, path string) (*ScanResult, error) {
	set, err := s.compileCatalog()
	if err != nil {
		return nil, err
	}
	defer set.Close()
	return s.inner.Scan(ctx, path, set)
}

// ScanPaths resolves args (files, directories or glob patterns) and scans
// the result with the catalog signatures.
func (s *Scanner) ScanPaths(ctx context.Context, args []string) (*ScanResult, error) {
	paths, err := s.inner.Resolve(args)
	if err != nil {
		return nil, err
	}
	set, err := s.compileCatalog()
	if err != nil {
		return nil, err
	}
	defer set.Close()

	result, err := s.inner.ScanPaths(ctx, paths, set)
	if err != nil {
		return nil, err
	}
	result.Target = strings.Join(args, " ")
	return result, nil
}

// Signatures returns the catalog selection the Scanner matches with, in
// match order.
func (s *Scanner) Signatures() ([]Signature, error) {
	selected, err := s.selectCatalog()
	if err != nil {
		return nil, err
	}
	sigs := signatures.ToDetector(selected)
	for _, p := range s.cfg.signatures {
		sigs = append(sigs, Signature{Pattern: p})
	}
	return sigs, nil
}

func (s *Scanner) compileCatalog() (*detector.Set, error) {
	sigs, err := s.Signatures()
	if err != nil {
		return nil, err
	}
	return detector.Compile(sigs, s.cfg.compileOptions()...)
}

func (s *Scanner) selectCatalog() ([]signatures.RawSignature, error) {
	catalog, err := loadCatalog(s.cfg)
	if err != nil {
		return nil, err
	}
	selected, err := catalog.Select(s.cfg.sets...)
	if err != nil {
		return nil, err
	}
	return signatures.Disable(selected, s.cfg.disabledSignatures...), nil
}

// CheckVirusFromFile reports whether the file at path matches any of the
// signature patterns. Unreadable and missing files are reported clean.
func CheckVirusFromFile(path string, signatures []string) (bool, error) {
	return New().CheckVirusFromFile(context.Background(), path, signatures)
}

// CheckVirusFromFiles reports one verdict per path, in input order.
func CheckVirusFromFiles(paths, signatures []string) ([]bool, error) {
	return New().CheckVirusFromFiles(context.Background(), paths, signatures)
}

// ScanFiles returns the tri-state outcome for each path, in input order.
func ScanFiles(ctx context.Context, paths, signatures []string, opts ...Option) ([]Outcome, error) {
	return New(opts...).ScanFiles(ctx, paths, signatures)
}

// Scan scans a file or directory on disk with the builtin catalog.
func Scan(ctx context.Context, path string, opts ...Option) (*ScanResult, error) {
	return New(opts...).Scan(ctx, path)
}

// DetectText reports whether text matches any of the signature patterns.
func DetectText(text string, signatures []string, opts ...Option) (bool, error) {
	cfg := applyOpts(opts)
	return detector.Detect(specimen.NewText(text), signatures, cfg.compileOptions()...)
}

// ListSignatures returns the catalog signatures in the sets selected by
// WithSets, or every signature when no set is given.
func ListSignatures(opts ...Option) ([]SignatureInfo, error) {
	cfg := applyOpts(opts)
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	entries := catalog.All()
	if len(cfg.sets) > 0 {
		if entries, err = catalog.Select(cfg.sets...); err != nil {
			return nil, err
		}
	}
	entries = signatures.Disable(entries, cfg.disabledSignatures...)

	infos := make([]SignatureInfo, len(entries))
	for i, r := range entries {
		infos[i] = SignatureInfo{ID: r.ID, Name: r.Name, Sets: r.Sets, Pattern: r.Pattern}
	}
	return infos, nil
}

// SignatureSets returns the names of every set in the catalog.
func SignatureSets(opts ...Option) ([]string, error) {
	catalog, err := loadCatalog(applyOpts(opts))
	if err != nil {
		return nil, err
	}
	return catalog.Sets(), nil
}

// ExplainSignature returns the full catalog entry for id, checked against
// its own examples with the configured engine.
func ExplainSignature(id string, opts ...Option) (*SignatureDetail, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	cfg := applyOpts(opts)
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	r, ok := catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("signature %q not found", id)
	}
	d := &SignatureDetail{
		ID:             r.ID,
		Name:           r.Name,
		Description:    strings.TrimSpace(r.Description),
		Sets:           r.Sets,
		Pattern:        r.Pattern,
		Reference:      r.Reference,
		TruePositives:  r.Examples.TruePositive,
		FalsePositives: r.Examples.FalsePositive,
	}
	for _, e := range signatures.SelfTest(r, cfg.engine) {
		d.SelfTestFailures = append(d.SelfTestFailures, e.Error())
	}
	return d, nil
}

// SelfTest runs every catalog signature against its own examples and
// returns one error per failing example.
func SelfTest(opts ...Option) ([]error, error) {
	cfg := applyOpts(opts)
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	var failures []error
	for _, r := range catalog.All() {
		failures = append(failures, signatures.SelfTest(r, cfg.engine)...)
	}
	return failures, nil
}

func applyOpts(opts []Option) *scanConfig {
	cfg := &scanConfig{}
	for _, o := range opts {
		o(cfg)
	}
	cfg.logger = logging.OrDiscard(cfg.logger)
	return cfg
}

// loadCatalog loads the builtin signatures plus the custom directory, if
// any. Invalid custom entries are logged and skipped.
func loadCatalog(cfg *scanConfig) (*signatures.Catalog, error) {
	catalog, err := signatures.Builtin()
	if err != nil {
		return nil, err
	}
	if cfg.customDir == "" {
		return catalog, nil
	}

	custom, err := signatures.LoadFromDir(cfg.customDir, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("loading custom signatures from %s: %w", cfg.customDir, err)
	}
	merged, errs := catalog.Merge(custom)
	for _, e := range errs {
		cfg.logger.Warn("skipping signature", "err", e)
	}
	return merged, nil
}
