package detector

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// Layer is text recovered from an encoded blob inside a specimen.
type Layer struct {
	// Encoding is "base64" or "hex".
	Encoding string
	// Offset is the byte offset of the blob in the source text.
	Offset int
	Text   string
}

var (
	base64Blob = regexp.MustCompile(`[A-Za-z0-9+/_-]{16,}={0,2}`)
	hexBlob    = regexp.MustCompile(`(?:0x)?[0-9a-fA-F]{16,}`)
)

const minLayerLen = 8

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeLayers finds base64 and hex blobs in text and returns those that
// decode to mostly printable text, in order of appearance per encoding.
func DecodeLayers(text string) []Layer {
	var layers []Layer

	for _, loc := range base64Blob.FindAllStringIndex(text, -1) {
		if decoded, ok := decodeBase64(text[loc[0]:loc[1]]); ok {
			layers = append(layers, Layer{Encoding: "base64", Offset: loc[0], Text: decoded})
		}
	}

	for _, loc := range hexBlob.FindAllStringIndex(text, -1) {
		encoded := strings.TrimPrefix(text[loc[0]:loc[1]], "0x")
		if len(encoded)%2 != 0 {
			continue
		}
		decoded, err := hex.DecodeString(encoded)
		if err != nil || !printable(decoded) {
			continue
		}
		layers = append(layers, Layer{Encoding: "hex", Offset: loc[0], Text: string(decoded)})
	}
	return layers
}

func decodeBase64(s string) (string, bool) {
	for _, enc := range base64Encodings {
		decoded, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if !printable(decoded) {
			return "", false
		}
		return string(decoded), true
	}
	return "", false
}

// printable reports whether more than 70% of data is printable ASCII or
// whitespace.
func printable(data []byte) bool {
	if len(data) < minLayerLen {
		return false
	}
	n := 0
	for _, b := range data {
		if b < unicode.MaxASCII && (unicode.IsPrint(rune(b)) || b == '\n' || b == '\r' || b == '\t') {
			n++
		}
	}
	return float64(n)/float64(len(data)) > 0.7
}

func lineAt(text string, offset int) int {
	return strings.Count(text[:min(offset, len(text))], "\n") + 1
}
