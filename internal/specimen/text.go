package specimen

// Encoding names the codec a Text was decoded with.
type Encoding string

const (
	EncodingUTF8 Encoding = "utf-8"
	EncodingGBK  Encoding = "gbk"
)

// Text is decoded script content. The zero value is an empty UTF-8 text.
type Text struct {
	contents string
	encoding Encoding
}

// NewText wraps an already decoded string.
func NewText(s string) *Text {
	return &Text{contents: s, encoding: EncodingUTF8}
}

func (t *Text) String() string { return t.contents }

// Data returns the UTF-8 bytes of the text.
func (t *Text) Data() []byte { return []byte(t.contents) }

func (t *Text) Len() int { return len(t.contents) }

// Encoding reports the source encoding the text was decoded from.
func (t *Text) Encoding() Encoding {
	if t.encoding == "" {
		return EncodingUTF8
	}
	return t.encoding
}
