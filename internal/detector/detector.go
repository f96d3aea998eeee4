// Package detector matches specimens against regular-expression
// signatures. A specimen is infected when any signature is found anywhere
// in its text.
package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/umbrella-scan/umbrella/internal/specimen"
)

// Signature is one malware pattern. Only Pattern takes part in matching;
// Name is carried through to reports.
type Signature struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Patterns builds unnamed signatures from bare patterns.
func Patterns(patterns ...string) []Signature {
	sigs := make([]Signature, len(patterns))
	for i, p := range patterns {
		sigs[i] = Signature{Pattern: p}
	}
	return sigs
}

// Label returns Name, or the pattern itself for unnamed signatures.
func (s Signature) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Pattern
}

// Hit describes the first signature that matched a specimen.
type Hit struct {
	Signature Signature
	Index     int
	// Line is the 1-based line of the match start.
	Line    int
	Excerpt string
	// Decoded names the encoding of the blob the match was found in, or
	// is empty for a match in the plain text.
	Decoded string
}

type config struct {
	engine Engine
	decode bool
}

// Option configures Compile.
type Option func(*config)

// WithEngine selects the regex engine.
func WithEngine(e Engine) Option {
	return func(c *config) { c.engine = e }
}

// WithDecode also matches signatures against base64 and hex blobs
// embedded in the text. Plain-text matches take precedence.
func WithDecode(on bool) Option {
	return func(c *config) { c.decode = on }
}

// Set is a compiled, immutable group of signatures. It is safe for
// concurrent use. Sets using the PCRE engine hold native resources and
// should be closed.
type Set struct {
	sigs     []Signature
	matchers []matcher
	engine   Engine
	decode   bool
}

// Compile compiles every signature. The first invalid pattern aborts the
// whole set with an *InvalidSignatureError; a partial set is never
// returned.
func Compile(sigs []Signature, opts ...Option) (*Set, error) {
	cfg := config{engine: EngineRE2}
	for _, o := range opts {
		o(&cfg)
	}

	set := &Set{
		sigs:     append([]Signature(nil), sigs...),
		matchers: make([]matcher, 0, len(sigs)),
		engine:   cfg.engine,
		decode:   cfg.decode,
	}
	for i, sig := range sigs {
		m, err := compileMatcher(cfg.engine, sig.Pattern)
		if err != nil {
			set.Close()
			return nil, &InvalidSignatureError{Index: i, Pattern: sig.Pattern, Err: err}
		}
		set.matchers = append(set.matchers, m)
	}
	return set, nil
}

// Detect reports whether any signature occurs in the specimen.
func (s *Set) Detect(sp specimen.Specimen) bool {
	_, ok := s.Match(sp)
	return ok
}

// Match returns the first signature, in set order, found in the specimen.
func (s *Set) Match(sp specimen.Specimen) (Signature, bool) {
	if s.decode {
		hit, ok := s.Find(sp)
		return hit.Signature, ok
	}
	text := textOf(sp)
	for i, m := range s.matchers {
		if m.match(text) {
			return s.sigs[i], true
		}
	}
	return Signature{}, false
}

// Find is Match with the location of the hit. For decoded layers, Line is
// the line of the encoded blob and Excerpt is decoded text.
func (s *Set) Find(sp specimen.Specimen) (Hit, bool) {
	text := textOf(sp)
	if hit, ok := s.find(text); ok {
		return hit, true
	}
	if !s.decode {
		return Hit{}, false
	}
	for _, layer := range DecodeLayers(text) {
		if hit, ok := s.find(layer.Text); ok {
			hit.Line = lineAt(text, layer.Offset)
			hit.Decoded = layer.Encoding
			return hit, true
		}
	}
	return Hit{}, false
}

func (s *Set) find(text string) (Hit, bool) {
	for i, m := range s.matchers {
		loc, ok := m.find(text)
		if !ok {
			continue
		}
		hit := Hit{Signature: s.sigs[i], Index: i}
		if loc != nil {
			hit.Line = lineAt(text, loc[0])
			hit.Excerpt = text[loc[0]:loc[1]]
		}
		return hit, true
	}
	return Hit{}, false
}

// Len returns the number of signatures.
func (s *Set) Len() int { return len(s.sigs) }

// Signatures returns a copy of the signatures in set order.
func (s *Set) Signatures() []Signature {
	return append([]Signature(nil), s.sigs...)
}

func (s *Set) Engine() Engine { return s.engine }

// Digest identifies the set by engine and patterns, in order. Two sets with
// the same digest give the same verdicts.
func (s *Set) Digest() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", s.engine)
	if s.decode {
		io.WriteString(h, "decode\x00")
	}
	for _, sig := range s.sigs {
		fmt.Fprintf(h, "%s\x00", sig.Pattern)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Close releases engine resources. It is safe to call more than once.
func (s *Set) Close() error {
	if s == nil {
		return nil
	}
	for _, m := range s.matchers {
		m.close()
	}
	s.matchers = nil
	return nil
}

// Detect compiles patterns and checks the specimen in one call.
func Detect(sp specimen.Specimen, patterns []string, opts ...Option) (bool, error) {
	set, err := Compile(Patterns(patterns...), opts...)
	if err != nil {
		return false, err
	}
	defer set.Close()
	return set.Detect(sp), nil
}

func textOf(sp specimen.Specimen) string {
	if sp == nil {
		return ""
	}
	if s, ok := sp.(fmt.Stringer); ok {
		return s.String()
	}
	return string(sp.Data())
}
