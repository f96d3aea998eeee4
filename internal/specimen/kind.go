package specimen

// Kind is the closed set of specimen categories a loader can produce.
type Kind int

const (
	KindText Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Typed carries a loaded specimen together with its kind and the MIME type
// sniffed from its leading bytes.
type Typed struct {
	Kind Kind
	MIME string
	Text *Text
}

// Specimen returns the payload matching Kind.
func (t Typed) Specimen() Specimen {
	switch t.Kind {
	case KindText:
		return t.Text
	default:
		return nil
	}
}

// Classify decides the kind of a file from its path and sniffed MIME type.
// Every file is currently treated as text.
//
// TODO: route application/x-executable and application/octet-stream to a
// binary kind once a binary detector exists.
func Classify(path, mime string) Kind {
	return KindText
}
