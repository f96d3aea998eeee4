package specimen

import "io"

// Raw owns a byte buffer sized to the source file at load time.
type Raw struct {
	buf []byte
}

// NewRaw allocates a buffer of exactly size bytes. Negative sizes are
// treated as zero.
func NewRaw(size int64) *Raw {
	return &Raw{buf: make([]byte, max(size, 0))}
}

// Data returns the buffer contents.
func (r *Raw) Data() []byte { return r.buf }

// MutData exposes the buffer for filling. It must not be used once the
// specimen has been handed to a decoder.
func (r *Raw) MutData() []byte { return r.buf }

// Len returns the buffer size.
func (r *Raw) Len() int { return len(r.buf) }

// ReadFrom fills the whole buffer from src. A source shorter than the
// buffer fails with io.ErrUnexpectedEOF.
func (r *Raw) ReadFrom(src io.Reader) (int64, error) {
	n, err := io.ReadFull(src, r.buf)
	return int64(n), err
}
