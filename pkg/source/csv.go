package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned for character sets without a decoder.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Decoder returns the decoder for a CSV character set name.
func Decoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		// Strips a leading byte order mark, which spreadsheet exports often add.
		return unicode.UTF8BOM.NewDecoder(), nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder(), nil
	case "koi8-r", "koi8r":
		return charmap.KOI8R.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// ReadCSV reads a delimited file, decoding it from opts.Encoding.
func ReadCSV(r io.Reader, opts Options) (*Table, error) {
	dec, err := Decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, dec))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return buildTable(rows, opts)
}
