package importer

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cleared-dev/bankcsv/internal/schema"
)

// Decode returns a reader of UTF-8 text for a raw export. With
// EncodingAuto the whole input is read: valid UTF-8 is passed through and
// anything else is decoded as ISO-8859-1. A UTF-8 byte order mark is dropped.
func Decode(r io.Reader, enc schema.Encoding) (io.Reader, error) {
	switch enc {
	case schema.EncodingLatin1:
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case schema.EncodingUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder()), nil
	case schema.EncodingAuto, "":
	default:
		return nil, fmt.Errorf("unknown encoding %q", enc)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if utf8.Valid(data) {
		return bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding latin1: %w", err)
	}
	return bytes.NewReader(text), nil
}
