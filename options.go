package umbrella

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"

	"github.com/umbrella-scan/umbrella/internal/detector"
)

// scanConfig holds the resolved configuration of a Scanner.
type scanConfig struct {
	engine             detector.Engine
	workers            int
	loadLimit          int
	timeout            time.Duration
	logger             *log.Logger
	fs                 billy.Basic
	sets               []string
	signatures         []string
	customDir          string
	disabledSignatures []string
	ignorePatterns     []string
	cache              Cache
	progress           func(done, total int)
	decode             bool
}

func (c *scanConfig) compileOptions() []detector.Option {
	return []detector.Option{detector.WithEngine(c.engine), detector.WithDecode(c.decode)}
}

// Option configures a Scanner.
type Option func(*scanConfig)

// WithEngine selects the regular-expression engine (default EngineRE2).
func WithEngine(e Engine) Option {
	return func(c *scanConfig) {
		c.engine = e
	}
}

// WithWorkers sets the number of matching workers (default: NumCPU).
func WithWorkers(n int) Option {
	return func(c *scanConfig) {
		c.workers = n
	}
}

// WithLoadLimit caps how many files are read at once. Zero, the default,
// reads every file of a batch concurrently.
func WithLoadLimit(n int) Option {
	return func(c *scanConfig) {
		c.loadLimit = n
	}
}

// WithTimeout bounds each file load. A file that takes longer is
// reported unscannable.
func WithTimeout(d time.Duration) Option {
	return func(c *scanConfig) {
		c.timeout = d
	}
}

// WithLogger sets the logger for per-file diagnostics. Without one,
// diagnostics are discarded.
func WithLogger(l *log.Logger) Option {
	return func(c *scanConfig) {
		c.logger = l
	}
}

// WithFilesystem reads files, and stats the root passed to Scan, through fs
// instead of the host filesystem. Directory discovery still walks the host
// filesystem.
func WithFilesystem(fs billy.Basic) Option {
	return func(c *scanConfig) {
		c.fs = fs
	}
}

// WithSets selects builtin signature sets for catalog scans
// (default "file").
func WithSets(sets ...string) Option {
	return func(c *scanConfig) {
		c.sets = append(c.sets, sets...)
	}
}

// WithSignatures adds bare patterns to the catalog selection.
func WithSignatures(patterns ...string) Option {
	return func(c *scanConfig) {
		c.signatures = append(c.signatures, patterns...)
	}
}

// WithCustomSignatures loads additional signature files from dir.
func WithCustomSignatures(dir string) Option {
	return func(c *scanConfig) {
		c.customDir = dir
	}
}

// WithDisabledSignatures excludes catalog signatures by ID.
func WithDisabledSignatures(ids ...string) Option {
	return func(c *scanConfig) {
		c.disabledSignatures = append(c.disabledSignatures, ids...)
	}
}

// WithIgnorePatterns sets gitignore-style patterns skipped during
// directory discovery.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *scanConfig) {
		c.ignorePatterns = patterns
	}
}

// WithCache reuses verdicts for files whose content and signature set are
// unchanged.
func WithCache(cache Cache) Option {
	return func(c *scanConfig) {
		c.cache = cache
	}
}

// WithDecodeEmbedded also matches signatures inside base64 and hex blobs
// found in the text, such as payloads passed to exec(base64.b64decode(...)).
func WithDecodeEmbedded(on bool) Option {
	return func(c *scanConfig) {
		c.decode = on
	}
}

// WithProgress registers a callback invoked after each file is matched.
func WithProgress(fn func(done, total int)) Option {
	return func(c *scanConfig) {
		c.progress = fn
	}
}
