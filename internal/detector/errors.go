package detector

import (
	"errors"
	"fmt"
)

// ErrInvalidSignature matches every *InvalidSignatureError.
var ErrInvalidSignature = errors.New("invalid signature")

// InvalidSignatureError reports a pattern that failed to compile.
type InvalidSignatureError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature %d %q: %v", e.Index, e.Pattern, e.Err)
}

func (e *InvalidSignatureError) Unwrap() error { return e.Err }

func (e *InvalidSignatureError) Is(target error) bool { return target == ErrInvalidSignature }
