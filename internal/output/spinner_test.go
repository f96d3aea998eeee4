package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer lets the test read while the spinner goroutine writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerStartStop(t *testing.T) {
	var buf lockedBuffer
	sp := NewSpinner(&buf)
	sp.Start("Loading...")
	time.Sleep(200 * time.Millisecond)
	sp.Stop()

	if out := buf.String(); !strings.Contains(out, "Loading...") {
		t.Errorf("expected spinner output to contain message, got %q", out)
	}
}

func TestSpinnerStopIdempotent(t *testing.T) {
	var buf lockedBuffer
	sp := NewSpinner(&buf)
	sp.Start("test")
	time.Sleep(100 * time.Millisecond)
	sp.Stop()
	sp.Stop()

	// never started
	NewSpinner(&buf).Stop()
}

func TestSpinnerRestart(t *testing.T) {
	var buf lockedBuffer
	sp := NewSpinner(&buf)
	sp.Start("first")
	sp.Start("second")
	time.Sleep(200 * time.Millisecond)
	sp.Stop()
	sp.Start("third")
	time.Sleep(200 * time.Millisecond)
	sp.Stop()

	out := buf.String()
	if !strings.Contains(out, "second") || !strings.Contains(out, "third") {
		t.Errorf("expected both runs in output, got %q", out)
	}
}

func TestSpinnerProgress(t *testing.T) {
	var buf lockedBuffer
	sp := NewSpinner(&buf)
	sp.Start("Scanning")
	sp.Progress("Scanning", 3, 7)
	time.Sleep(200 * time.Millisecond)
	sp.Stop()

	if out := buf.String(); !strings.Contains(out, "Scanning 3/7 files") {
		t.Errorf("expected progress line, got %q", out)
	}
}

func TestSpinnerConcurrentUpdate(t *testing.T) {
	var buf lockedBuffer
	sp := NewSpinner(&buf)
	sp.Start("start")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			sp.Progress("Scanning", i, 10)
		})
	}
	wg.Wait()
	sp.Stop()
}

func TestSpinnerClearsLine(t *testing.T) {
	var buf lockedBuffer
	sp := NewSpinner(&buf)
	sp.Start("working")
	time.Sleep(200 * time.Millisecond)
	sp.Stop()

	if out := buf.String(); !strings.HasSuffix(out, "\r") {
		t.Errorf("expected spinner to clear line with \\r at end, got %q", out)
	}
}
