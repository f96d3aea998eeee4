package detector

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"go.elara.ws/pcre"
)

// Engine selects the regular-expression implementation.
type Engine int

const (
	// EngineRE2 is Go's linear-time regexp package.
	EngineRE2 Engine = iota
	// EnginePCRE supports lookarounds and backreferences.
	EnginePCRE
)

func (e Engine) String() string {
	switch e {
	case EngineRE2:
		return "re2"
	case EnginePCRE:
		return "pcre"
	default:
		return "unknown"
	}
}

// ParseEngine converts a name to an Engine. The empty string selects RE2.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "re2", "regexp":
		return EngineRE2, nil
	case "pcre", "pcre2":
		return EnginePCRE, nil
	default:
		return EngineRE2, fmt.Errorf("unknown engine: %q", s)
	}
}

type matcher interface {
	match(text string) bool
	find(text string) ([]int, bool)
	close()
}

func compileMatcher(e Engine, pattern string) (matcher, error) {
	switch e {
	case EngineRE2:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return re2Matcher{re: re}, nil
	case EnginePCRE:
		re, err := pcre.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return &pcreMatcher{re: re}, nil
	default:
		return nil, fmt.Errorf("unknown engine %d", int(e))
	}
}

type re2Matcher struct {
	re *regexp.Regexp
}

func (m re2Matcher) match(text string) bool { return m.re.MatchString(text) }

func (m re2Matcher) find(text string) ([]int, bool) {
	loc := m.re.FindStringIndex(text)
	return loc, loc != nil
}

func (re2Matcher) close() {}

type pcreMatcher struct {
	mu sync.Mutex
	re *pcre.Regexp
}

func (m *pcreMatcher) match(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.re == nil {
		return false
	}
	return m.re.Match([]byte(text))
}

func (m *pcreMatcher) find(text string) ([]int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.re == nil {
		return nil, false
	}
	locs := m.re.FindAllIndex([]byte(text), 1)
	if len(locs) == 0 {
		return nil, false
	}
	return locs[0], true
}

func (m *pcreMatcher) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.re != nil {
		// pcre.Compile registers a finalizer that closes the regexp too.
		runtime.SetFinalizer(m.re, nil)
		m.re.Close()
		m.re = nil
	}
}
