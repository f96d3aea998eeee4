package specimen

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrDecode reports that a raw buffer could not be turned into text.
var ErrDecode = errors.New("decode failed")

// Decode converts raw bytes to text. Valid UTF-8 is taken as-is; anything
// else goes through the GBK decoder, which substitutes U+FFFD for byte
// sequences it cannot map instead of failing.
func Decode(raw *Raw) (*Text, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrDecode)
	}
	data := raw.Data()
	if utf8.Valid(data) {
		return &Text{contents: string(data), encoding: EncodingUTF8}, nil
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: gbk: %w", ErrDecode, err)
	}
	return &Text{contents: string(out), encoding: EncodingGBK}, nil
}
