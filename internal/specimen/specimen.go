// Package specimen models file contents as they move through a scan: the
// raw bytes read from disk and the decoded script text the detector runs on.
package specimen

// Specimen is anything a detector can inspect.
type Specimen interface {
	Data() []byte
}

var (
	_ Specimen = (*Raw)(nil)
	_ Specimen = (*Text)(nil)
)
