package convert

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// decodeText decodes engine output whose encoding is not contractually fixed.
// It tries UTF-8, then Shift-JIS, then ISO-8859-1 in order and returns the
// first successful decode. ISO-8859-1 maps every byte to a code point, so the
// chain only fails if the final transformer itself errors.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	if s, err := decodeStrict(japanese.ShiftJIS.NewDecoder(), data); err == nil {
		return s, nil
	}

	s, err := decodeStrict(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return s, nil
}

// decodeStrict runs a decoder and treats replacement-rune substitution as a
// failure, since x/text decoders substitute U+FFFD for undecodable input
// instead of erroring.
func decodeStrict(dec *encoding.Decoder, data []byte) (string, error) {
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("decoder substituted replacement runes")
	}
	return string(out), nil
}
