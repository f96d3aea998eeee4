// Package signatures manages the signature catalog: YAML definitions
// grouped into named sets, loaded from the embedded builtin files and
// optional custom directories.
package signatures

import (
	"fmt"
	"regexp"

	"github.com/umbrella-scan/umbrella/internal/detector"
	"github.com/umbrella-scan/umbrella/internal/specimen"
)

// RawExamples contains test examples for signature self-testing.
type RawExamples struct {
	TruePositive  []string `yaml:"true_positive"`
	FalsePositive []string `yaml:"false_positive"`
}

// RawSignature is the YAML representation of a signature.
type RawSignature struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Sets        []string    `yaml:"sets"`
	Pattern     string      `yaml:"pattern"`
	Reference   string      `yaml:"reference"`
	Examples    RawExamples `yaml:"examples"`
}

// Detector converts the catalog entry to a detector signature named by ID.
func (r RawSignature) Detector() detector.Signature {
	return detector.Signature{Name: r.ID, Pattern: r.Pattern}
}

// InSet reports whether the signature belongs to set.
func (r RawSignature) InSet(set string) bool {
	for _, s := range r.Sets {
		if s == set {
			return true
		}
	}
	return false
}

var idPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Validate checks the structural fields of a signature. Patterns are
// compiled later, together with the rest of the selected set.
func Validate(r RawSignature) error {
	if r.ID == "" {
		return fmt.Errorf("signature missing id")
	}
	if !idPattern.MatchString(r.ID) {
		return fmt.Errorf("signature %s: id must be upper snake case", r.ID)
	}
	if r.Pattern == "" {
		return fmt.Errorf("signature %s: missing pattern", r.ID)
	}
	if len(r.Sets) == 0 {
		return fmt.Errorf("signature %s: no sets", r.ID)
	}
	return nil
}

// SelfTest compiles the signature with engine and checks it against its own
// examples. It returns one error per failed example.
func SelfTest(r RawSignature, engine detector.Engine) []error {
	set, err := detector.Compile([]detector.Signature{r.Detector()}, detector.WithEngine(engine))
	if err != nil {
		return []error{fmt.Errorf("signature %s: %w", r.ID, err)}
	}
	defer set.Close()

	var errs []error
	for i, ex := range r.Examples.TruePositive {
		if !set.Detect(specimen.NewText(ex)) {
			errs = append(errs, fmt.Errorf("signature %s: true_positive %d not matched: %q", r.ID, i, ex))
		}
	}
	for i, ex := range r.Examples.FalsePositive {
		if set.Detect(specimen.NewText(ex)) {
			errs = append(errs, fmt.Errorf("signature %s: false_positive %d matched: %q", r.ID, i, ex))
		}
	}
	return errs
}
