package scanner_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/umbrella-scan/umbrella/internal/detector"
	"github.com/umbrella-scan/umbrella/internal/loader"
	"github.com/umbrella-scan/umbrella/internal/scanner"
	"github.com/umbrella-scan/umbrella/internal/specimen"
)

var fileSignatures = []string{
	"import vaccine",
	"cmds.evalDeferred.*leukocyte.+",
	"python(.*);.+exec.+(pyCode).+;",
}

func testdataDir(t *testing.T) string {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "maya")
}

func compile(t *testing.T, patterns ...string) *detector.Set {
	t.Helper()
	set, err := detector.Compile(detector.Patterns(patterns...))
	require.NoError(t, err)
	return set
}

func samplePaths(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(testdataDir(t))
	require.NoError(t, err)
	var paths []string
	for _, e := range entries {
		paths = append(paths, filepath.Join(testdataDir(t), e.Name()))
	}
	sort.Strings(paths)
	require.Len(t, paths, 7)
	return paths
}

func TestScanPathsSampleSet(t *testing.T) {
	s := scanner.New(2)
	result, err := s.ScanPaths(context.Background(), samplePaths(t), compile(t, fileSignatures...))
	require.NoError(t, err)

	want := []bool{false, false, false, true, true, true, true}
	if diff := cmp.Diff(want, result.Verdicts()); diff != "" {
		t.Fatalf("verdicts mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 7, result.FilesScanned)
	require.Equal(t, 3, result.SignaturesLoaded)
	require.Zero(t, result.Count(scanner.StatusUnscannable))

	gbk := result.Outcomes[6]
	require.Equal(t, "gbk", gbk.Encoding)
	require.Equal(t, "import vaccine", gbk.Signature)
	require.Equal(t, 2, gbk.Line)

	leuko := result.Outcomes[4]
	require.Equal(t, "cmds.evalDeferred.*leukocyte.+", leuko.Pattern)
	require.Equal(t, 8, leuko.Line)
}

func TestScanPathsFailOpen(t *testing.T) {
	dir := t.TempDir()
	infected := filepath.Join(dir, "vaccine.py")
	require.NoError(t, os.WriteFile(infected, []byte("import vaccine\n"), 0644))

	var logs bytes.Buffer
	s := scanner.New(1)
	s.SetLogger(log.New(&logs))

	paths := []string{filepath.Join(dir, "missing.py"), infected, dir}
	result, err := s.ScanPaths(context.Background(), paths, compile(t, "import vaccine"))
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)

	require.Equal(t, scanner.StatusUnscannable, result.Outcomes[0].Status)
	require.Equal(t, "NOT_FOUND", result.Outcomes[0].ErrorCode)
	require.Error(t, result.Outcomes[0].Err)

	require.Equal(t, scanner.StatusInfected, result.Outcomes[1].Status)

	require.Equal(t, scanner.StatusUnscannable, result.Outcomes[2].Status)
	require.Equal(t, "IO_ERROR", result.Outcomes[2].ErrorCode)

	require.Equal(t, []bool{false, true, false}, result.Verdicts())
	require.Contains(t, logs.String(), "file not scanned")
	require.Contains(t, logs.String(), "missing.py")
}

func TestScanPathsProgress(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []int
		total int
	)
	s := scanner.New(3)
	s.SetProgress(func(done, n int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, done)
		total = n
	})
	_, err := s.ScanPaths(context.Background(), samplePaths(t), compile(t, fileSignatures...))
	require.NoError(t, err)

	sort.Ints(calls)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, calls)
	require.Equal(t, 7, total)
}

func TestScanPathsNilSet(t *testing.T) {
	_, err := scanner.New(1).ScanPaths(context.Background(), []string{"a"}, nil)
	require.Error(t, err)
}

func TestScanPathsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scanner.New(1).ScanPaths(ctx, samplePaths(t), compile(t, "x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestScanPathsEmpty(t *testing.T) {
	result, err := scanner.New(0).ScanPaths(context.Background(), nil, compile(t, "x"))
	require.NoError(t, err)
	require.Empty(t, result.Outcomes)
	require.Empty(t, result.Verdicts())
}

func TestScanPathsMemoryFilesystem(t *testing.T) {
	mfs := memfs.New()
	require.NoError(t, util.WriteFile(mfs, "scripts/userSetup.py", []byte("import vaccine\n"), 0o644))
	require.NoError(t, util.WriteFile(mfs, "scripts/shelf.mel", []byte("polyCube;\n"), 0o644))

	s := scanner.New(2)
	s.SetLoader(loader.NewFileLoader(loader.WithFilesystem(mfs)).Typed())
	result, err := s.ScanPaths(context.Background(), []string{"scripts/userSetup.py", "scripts/shelf.mel"}, compile(t, fileSignatures...))
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, result.Verdicts())
	require.NotEmpty(t, result.Outcomes[0].MIME)
}

func TestScanSetFilesystem(t *testing.T) {
	mfs := memfs.New()
	require.NoError(t, util.WriteFile(mfs, "scripts/userSetup.py", []byte("import vaccine\n"), 0o644))

	s := scanner.New(1)
	s.SetFilesystem(mfs)
	result, err := s.Scan(context.Background(), "scripts/userSetup.py", compile(t, fileSignatures...))
	require.NoError(t, err)
	require.Equal(t, "scripts/userSetup.py", result.Target)
	require.Equal(t, []bool{true}, result.Verdicts())
}

func TestScanPathsTimeout(t *testing.T) {
	slow := loader.Func[specimen.Typed](func(ctx context.Context, path string) (specimen.Typed, error) {
		if path == "slow.py" {
			<-ctx.Done()
			return specimen.Typed{}, ctx.Err()
		}
		return specimen.Typed{Kind: specimen.KindText, Text: specimen.NewText("import vaccine")}, nil
	})

	s := scanner.New(1)
	s.SetLoader(slow)
	s.SetTimeout(20 * time.Millisecond)
	result, err := s.ScanPaths(context.Background(), []string{"slow.py", "fast.py"}, compile(t, "import vaccine"))
	require.NoError(t, err)
	require.Equal(t, scanner.StatusUnscannable, result.Outcomes[0].Status)
	require.Equal(t, "TIMEOUT", result.Outcomes[0].ErrorCode)
	require.Equal(t, scanner.StatusInfected, result.Outcomes[1].Status)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
}

type cacheEntry struct {
	digest    string
	status    scanner.Status
	signature string
}

func (c *memCache) Lookup(path, digest string) (scanner.Status, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok || e.digest != digest {
		return scanner.StatusClean, "", false
	}
	c.hits++
	return e.status, e.signature, true
}

func (c *memCache) Remember(path, digest string, status scanner.Status, signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{digest, status, signature}
}

func TestScanPathsCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "userSetup.py")
	require.NoError(t, os.WriteFile(path, []byte("import vaccine\n"), 0644))

	cache := &memCache{entries: map[string]cacheEntry{}}
	s := scanner.New(1)
	s.SetCache(cache)
	set := compile(t, "import vaccine")

	first, err := s.ScanPaths(context.Background(), []string{path}, set)
	require.NoError(t, err)
	require.False(t, first.Outcomes[0].Cached)

	second, err := s.ScanPaths(context.Background(), []string{path}, set)
	require.NoError(t, err)
	require.True(t, second.Outcomes[0].Cached)
	require.Equal(t, scanner.StatusInfected, second.Outcomes[0].Status)
	require.Equal(t, "import vaccine", second.Outcomes[0].Signature)
	require.Equal(t, 1, cache.hits)

	// Changing the signature set invalidates the cached verdict.
	third, err := s.ScanPaths(context.Background(), []string{path}, compile(t, "fuckVirus"))
	require.NoError(t, err)
	require.False(t, third.Outcomes[0].Cached)
	require.Equal(t, scanner.StatusClean, third.Outcomes[0].Status)

	require.NoError(t, os.WriteFile(path, []byte("print(1)\n"), 0644))
	fourth, err := s.ScanPaths(context.Background(), []string{path}, set)
	require.NoError(t, err)
	require.False(t, fourth.Outcomes[0].Cached)
	require.Equal(t, scanner.StatusClean, fourth.Outcomes[0].Status)
}

func TestScanDirectory(t *testing.T) {
	s := scanner.New(2)
	result, err := s.Scan(context.Background(), testdataDir(t), compile(t, fileSignatures...))
	require.NoError(t, err)
	require.Equal(t, testdataDir(t), result.Target)
	require.Equal(t, 7, result.FilesScanned)
	require.Equal(t, 4, result.Count(scanner.StatusInfected))
}

func TestScanSingleFile(t *testing.T) {
	path := filepath.Join(testdataDir(t), "04_vaccine.py")
	result, err := scanner.New(1).Scan(context.Background(), path, compile(t, fileSignatures...))
	require.NoError(t, err)
	require.Equal(t, []bool{true}, result.Verdicts())
}

func TestScanMissingRoot(t *testing.T) {
	_, err := scanner.New(1).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), compile(t, "x"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0755))
	a := filepath.Join(dir, "scripts", "a.py")
	b := filepath.Join(dir, "scripts", "b.mel")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0644))

	s := scanner.New(1)
	missing := filepath.Join(dir, "missing.py")
	got, err := s.Resolve([]string{
		filepath.Join(dir, "scripts", "*.py"),
		filepath.Join(dir, "scripts"),
		missing,
		a,
	})
	require.NoError(t, err)
	require.Equal(t, []string{a, b, missing}, got)

	_, err = s.Resolve([]string{filepath.Join(dir, "[")})
	require.Error(t, err)
}
