package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/umbrella-scan/umbrella/internal/specimen"
)

// sniffLen is how many leading bytes are handed to the MIME detector.
const sniffLen = 512

// FileLoader reads files through a billy filesystem and decodes them into
// text specimens.
type FileLoader struct {
	fs billy.Basic
}

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithFilesystem swaps the backing filesystem. Paths are resolved by it
// as given. Only Stat and Open are used.
func WithFilesystem(fs billy.Basic) Option {
	return func(l *FileLoader) { l.fs = fs }
}

// NewFileLoader returns a loader over the host filesystem unless another
// one is supplied.
func NewFileLoader(opts ...Option) *FileLoader {
	l := &FileLoader{fs: osfs.Default}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load reads path and decodes it to text.
func (l *FileLoader) Load(ctx context.Context, path string) (*specimen.Text, error) {
	raw, err := l.LoadRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	text, err := specimen.Decode(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Code: CodeDecode, Err: err}
	}
	return text, nil
}

// LoadRaw reads path into a buffer sized from a stat taken just before the
// read.
func (l *FileLoader) LoadRaw(ctx context.Context, path string) (*specimen.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(path, err)
	}
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Code: CodeIO, Err: errIsDir}
	}

	f, err := l.fs.Open(path)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	defer f.Close()

	raw := specimen.NewRaw(info.Size())
	if _, err := raw.ReadFrom(f); err != nil {
		return nil, &LoadError{Path: path, Code: CodeIO, Err: fmt.Errorf("reading: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(path, err)
	}
	return raw, nil
}

// Stat reports file info through the loader's filesystem.
func (l *FileLoader) Stat(path string) (os.FileInfo, error) {
	return l.fs.Stat(path)
}

// Typed returns a loader that also reports kind and MIME type.
func (l *FileLoader) Typed() *TypedLoader {
	return &TypedLoader{files: l}
}

// TypedLoader loads files as specimen.Typed values.
type TypedLoader struct {
	files *FileLoader
}

func (l *TypedLoader) Load(ctx context.Context, path string) (specimen.Typed, error) {
	raw, err := l.files.LoadRaw(ctx, path)
	if err != nil {
		return specimen.Typed{}, err
	}

	head := raw.Data()
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	mime := mimetype.Detect(head).String()

	switch kind := specimen.Classify(path, mime); kind {
	case specimen.KindText:
		text, err := specimen.Decode(raw)
		if err != nil {
			return specimen.Typed{}, &LoadError{Path: path, Code: CodeDecode, Err: err}
		}
		return specimen.Typed{Kind: kind, MIME: mime, Text: text}, nil
	default:
		return specimen.Typed{}, &LoadError{Path: path, Code: CodeDecode, Err: fmt.Errorf("unsupported kind %s", kind)}
	}
}

var (
	_ Loader[*specimen.Text]  = (*FileLoader)(nil)
	_ Loader[specimen.Typed] = (*TypedLoader)(nil)
)
