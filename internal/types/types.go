// Package types defines shared data structures (Status, Outcome, ScanResult)
// used across scanner, output, and the public API to prevent import cycles.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the verdict for one file.
type Status int

const (
	StatusClean Status = iota
	StatusInfected
	// StatusUnscannable means the file could not be loaded. The boolean
	// verdict treats it as clean.
	StatusUnscannable
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusInfected:
		return "infected"
	case StatusUnscannable:
		return "unscannable"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clean":
		return StatusClean, nil
	case "infected":
		return StatusInfected, nil
	case "unscannable":
		return StatusUnscannable, nil
	default:
		return StatusClean, fmt.Errorf("unknown status: %q", s)
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Outcome is the result of scanning one path.
type Outcome struct {
	Path      string `json:"path"`
	Status    Status `json:"status"`
	Signature string `json:"signature,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Line      int    `json:"line,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	MIME      string `json:"mime,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Decoded   string `json:"decoded,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	Cached    bool   `json:"cached,omitempty"`

	// Err is the load error behind an unscannable outcome.
	Err error `json:"-"`
}

// Infected is the boolean verdict. Unscannable files report false.
func (o Outcome) Infected() bool { return o.Status == StatusInfected }

// ScanResult holds the complete results of a scan.
type ScanResult struct {
	Outcomes         []Outcome     `json:"outcomes"`
	FilesScanned     int           `json:"files_scanned"`
	SignaturesLoaded int           `json:"signatures_loaded"`
	Duration         time.Duration `json:"-"`
	Target           string        `json:"-"`
}

// Verdicts projects outcomes to booleans in input order.
func (r *ScanResult) Verdicts() []bool {
	out := make([]bool, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Infected()
	}
	return out
}

// Count returns how many outcomes have the given status.
func (r *ScanResult) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Filter returns the outcomes with the given status, in order.
func (r *ScanResult) Filter(s Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == s {
			out = append(out, o)
		}
	}
	return out
}

// MarshalJSON implements custom JSON marshaling so Duration serializes as milliseconds.
func (r ScanResult) MarshalJSON() ([]byte, error) {
	type Alias ScanResult
	return json.Marshal(struct {
		Alias
		Infected    int   `json:"infected"`
		Unscannable int   `json:"unscannable"`
		DurationMS  int64 `json:"duration_ms"`
	}{
		Alias:       Alias(r),
		Infected:    r.Count(StatusInfected),
		Unscannable: r.Count(StatusUnscannable),
		DurationMS:  r.Duration.Milliseconds(),
	})
}
