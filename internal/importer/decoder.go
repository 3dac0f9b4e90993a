package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// RequiredColumns must be present in every header.
var RequiredColumns = []string{"sku", "name", "price", "stock_quantity"}

// DecoderOptions configures the Row Decoder.
type DecoderOptions struct {
	Delimiter rune
	Quote     byte
	Encoding  string
	// HeaderMap renames normalized header names, e.g. manufacturer -> brand.
	HeaderMap map[string]string
	Required  []string
}

// SourceRow is one raw data record keyed by normalized column name.
type SourceRow struct {
	Line   int
	Fields map[string]string
}

// Get returns the trimmed value of column, or "" when absent.
func (r SourceRow) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Has reports whether the header carried column.
func (r SourceRow) Has(column string) bool {
	_, ok := r.Fields[column]
	return ok
}

// Decoder streams SourceRows from a delimited file.
type Decoder struct {
	reader   *csv.Reader
	header   []string
	swap     *quoteSwap
	consumed int64
}

// NewDecoder reads and validates the header. A missing, empty or incomplete
// header is reported as *FormatError.
func NewDecoder(r io.Reader, opts DecoderOptions) (*Decoder, error) {
	src, err := sourceReader(r, opts.Encoding, opts.Quote)
	if err != nil {
		return nil, &FormatError{Reason: "source encoding", Err: err}
	}
	csvr := csv.NewReader(src)
	if opts.Delimiter != 0 {
		csvr.Comma = opts.Delimiter
	}
	csvr.FieldsPerRecord = -1 // arity is checked against the header below
	csvr.ReuseRecord = true

	d := &Decoder{reader: csvr}
	if opts.Quote != 0 && opts.Quote != '"' {
		d.swap = &quoteSwap{q: opts.Quote}
	}

	raw, err := csvr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &FormatError{Reason: "empty file"}
	}
	if err != nil {
		return nil, &FormatError{Reason: "unreadable header", Err: err}
	}

	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := NormalizeHeader(d.value(h))
		if alias, ok := opts.HeaderMap[name]; ok {
			name = alias
		}
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, &FormatError{Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = true
		header[i] = name
	}
	if len(seen) == 0 {
		return nil, &FormatError{Reason: "empty header"}
	}

	required := opts.Required
	if required == nil {
		required = RequiredColumns
	}
	var missing []string
	for _, col := range required {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &FormatError{Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	d.header = header
	return d, nil
}

// NormalizeHeader lowercases and trims a column name and joins inner
// whitespace runs with '_'.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	return strings.Join(strings.FieldsFunc(strings.ToLower(h), unicode.IsSpace), "_")
}

// Header returns the normalized column names. Empty names mark ignored columns.
func (d *Decoder) Header() []string {
	return append([]string(nil), d.header...)
}

// Consumed is the number of data records read so far, malformed and skipped
// ones included.
func (d *Decoder) Consumed() int64 {
	return d.consumed
}

// Next returns the next record. Records that cannot be aligned with the
// header are returned as *MalformedRowError; the caller may keep reading.
// io.EOF marks the end of input. Any other error is an I/O failure.
func (d *Decoder) Next() (SourceRow, error) {
	record, err := d.reader.Read()
	if errors.Is(err, io.EOF) {
		return SourceRow{}, io.EOF
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		d.consumed++
		return SourceRow{}, &MalformedRowError{Line: perr.StartLine, Err: perr.Err}
	}
	if err != nil {
		return SourceRow{}, fmt.Errorf("read row: %w", err)
	}
	d.consumed++

	line, _ := d.reader.FieldPos(0)
	if len(record) != len(d.header) {
		return SourceRow{}, &MalformedRowError{Line: line, Fields: len(record), Want: len(d.header)}
	}

	fields := make(map[string]string, len(record))
	for i, v := range record {
		if d.header[i] == "" {
			continue
		}
		fields[d.header[i]] = d.value(v)
	}
	return SourceRow{Line: line, Fields: fields}, nil
}

// Skip consumes up to n data records without validating them and returns how
// many were skipped. Fewer than n means the input ended.
func (d *Decoder) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		_, err := d.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return skipped, fmt.Errorf("skip rows: %w", err)
		}
		d.consumed++
		skipped++
	}
	return skipped, nil
}

func (d *Decoder) value(v string) string {
	if d.swap == nil {
		return v
	}
	return d.swap.restore(v)
}
