package scraper

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeHTML converts a page body to UTF-8. A charset from the Content-Type
// header or a byte order mark wins; otherwise a body that is already valid
// UTF-8 is kept, and anything else is decoded as the page declares, falling
// back to Windows-1252 (the theater's pages use its 0x96 en dash).
func DecodeHTML(body []byte, contentType string) ([]byte, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && utf8.Valid(body) {
		return body, nil
	}
	if enc == nil || name == "" {
		enc = charmap.Windows1252
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("decoding page as %s: %w", name, err)
	}
	return out, nil
}
