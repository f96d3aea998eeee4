package signatures

import (
	"fmt"
	"slices"
	"sort"

	"github.com/umbrella-scan/umbrella/internal/detector"
	"github.com/umbrella-scan/umbrella/internal/signatures/builtin"
)

// DefaultSet is selected when no set is requested.
const DefaultSet = "file"

// Catalog is an ordered, de-duplicated collection of signatures.
type Catalog struct {
	entries []RawSignature
	index   map[string]int
}

// NewCatalog validates raws and keeps the valid ones in order. A later
// signature with an ID already present replaces the earlier one in place,
// which lets custom files override builtin entries.
func NewCatalog(raws []RawSignature) (*Catalog, []error) {
	c := &Catalog{index: make(map[string]int, len(raws))}
	var errs []error
	for _, r := range raws {
		if err := Validate(r); err != nil {
			errs = append(errs, err)
			continue
		}
		if i, ok := c.index[r.ID]; ok {
			c.entries[i] = r
			continue
		}
		c.index[r.ID] = len(c.entries)
		c.entries = append(c.entries, r)
	}
	return c, errs
}

// Builtin loads the embedded catalog.
func Builtin() (*Catalog, error) {
	raws, err := LoadFromFS(builtin.FS())
	if err != nil {
		return nil, fmt.Errorf("loading builtin signatures: %w", err)
	}
	c, errs := NewCatalog(raws)
	if len(errs) > 0 {
		return nil, fmt.Errorf("builtin signatures: %w", errs[0])
	}
	return c, nil
}

// Merge returns a catalog with extra appended after c's entries.
func (c *Catalog) Merge(extra []RawSignature) (*Catalog, []error) {
	return NewCatalog(append(c.All(), extra...))
}

// All returns every signature in catalog order.
func (c *Catalog) All() []RawSignature {
	return slices.Clone(c.entries)
}

func (c *Catalog) Len() int { return len(c.entries) }

// Get looks a signature up by ID.
func (c *Catalog) Get(id string) (RawSignature, bool) {
	i, ok := c.index[id]
	if !ok {
		return RawSignature{}, false
	}
	return c.entries[i], true
}

// Sets returns the sorted names of every set referenced by the catalog.
func (c *Catalog) Sets() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range c.entries {
		for _, s := range r.Sets {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Select returns the signatures belonging to any of sets, in catalog order.
// With no sets it selects DefaultSet. Unknown set names are an error.
func (c *Catalog) Select(sets ...string) ([]RawSignature, error) {
	if len(sets) == 0 {
		sets = []string{DefaultSet}
	}
	known := c.Sets()
	for _, s := range sets {
		if !slices.Contains(known, s) {
			return nil, fmt.Errorf("unknown signature set %q (available: %v)", s, known)
		}
	}
	var out []RawSignature
	for _, r := range c.entries {
		if slices.ContainsFunc(sets, r.InSet) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Disable removes the signatures whose IDs appear in ids.
func Disable(sigs []RawSignature, ids ...string) []RawSignature {
	if len(ids) == 0 {
		return sigs
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var out []RawSignature
	for _, r := range sigs {
		if !drop[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// ToDetector converts catalog entries to detector signatures.
func ToDetector(sigs []RawSignature) []detector.Signature {
	out := make([]detector.Signature, len(sigs))
	for i, r := range sigs {
		out[i] = r.Detector()
	}
	return out
}
