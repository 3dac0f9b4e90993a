package importer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// quoteSwap exchanges a custom quote byte with '"' so encoding/csv can parse
// files quoted with another character. Values are swapped back after parsing.
type quoteSwap struct {
	transform.NopResetter
	q byte
}

func (s quoteSwap) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := copy(dst, src)
	for i := 0; i < n; i++ {
		switch dst[i] {
		case s.q:
			dst[i] = '"'
		case '"':
			dst[i] = s.q
		}
	}
	if n < len(src) {
		err = transform.ErrShortDst
	}
	return n, n, err
}

func (s quoteSwap) restore(v string) string {
	if strings.IndexByte(v, '"') < 0 && strings.IndexByte(v, s.q) < 0 {
		return v
	}
	b := []byte(v)
	for i := range b {
		switch b[i] {
		case '"':
			b[i] = s.q
		case s.q:
			b[i] = '"'
		}
	}
	return string(b)
}

// sourceReader decodes the input to UTF-8, drops a leading BOM and applies the
// quote swap when needed.
func sourceReader(r io.Reader, charset string, quote byte) (io.Reader, error) {
	var fallback transform.Transformer = transform.Nop
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "utf8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", charset, err)
		}
		fallback = enc.NewDecoder()
	}
	out := transform.NewReader(r, unicode.BOMOverride(fallback))
	if quote != 0 && quote != '"' {
		return transform.NewReader(out, quoteSwap{q: quote}), nil
	}
	return out, nil
}
