package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

const spinnerInterval = 80 * time.Millisecond

// Spinner draws a braille spinner with a status line on w, usually stderr.
// Update and Progress may be called from any goroutine.
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	message string
	width   int
	done    chan struct{}
	exited  chan struct{}
	running bool
}

// NewSpinner creates a spinner that writes to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Start shows message and begins animating. Starting a running spinner
// only replaces its message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.exited = make(chan struct{})
	go s.loop(s.done, s.exited)
}

// Update replaces the displayed message.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Progress shows "<verb> done/total files".
func (s *Spinner) Progress(verb string, done, total int) {
	s.Update(fmt.Sprintf("%s %d/%d files", verb, done, total))
}

// Stop halts the animation and erases the status line. Safe to call
// more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	exited := s.exited
	s.mu.Unlock()

	<-exited

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		s.width = 0
	}
}

func (s *Spinner) loop(done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-tick.C:
			s.mu.Lock()
			line := fmt.Sprintf("%c %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			n := utf8.RuneCountInString(line)
			// pad over the tail of a longer previous line
			pad := max(s.width-n, 0)
			fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", pad))
			s.width = max(s.width, n)
			s.mu.Unlock()
		}
	}
}
