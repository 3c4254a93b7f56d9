package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mercator-hq/pricelist/pkg/row"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrSheetNotFound is returned when the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Options controls how a file is turned into rows.
type Options struct {
	// Sheet is the workbook sheet; empty selects the first sheet.
	Sheet string

	// HeaderRows is the number of leading rows that are not data.
	HeaderRows int

	// HeaderKeys adds the text of the last header row as a key for each column.
	HeaderKeys bool

	// Delimiter separates CSV fields; zero means ','.
	Delimiter rune

	// Encoding is the CSV character set: utf-8, windows-1251 or koi8-r.
	Encoding string

	// MaxRows stops after this many data rows; 0 means unlimited.
	MaxRows int
}

// Record is one data row of a table.
type Record struct {
	// Number is the 1-based row number in the file.
	Number int

	// Row holds the cells keyed by column letter.
	Row row.Row
}

// Table is the content of one sheet or CSV file.
type Table struct {
	// Source is the file path.
	Source string

	// Sheet is the workbook sheet name; empty for CSV.
	Sheet string

	// Headers is the last header row, indexed by column.
	Headers []string

	// Records are the non-empty data rows in file order.
	Records []Record
}

// Open reads path with the reader matching its extension.
func Open(path string, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return ReadWorkbook(path, opts)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %q: %w", path, err)
		}
		defer f.Close()

		table, err := ReadCSV(f, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		table.Source = path
		return table, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadWorkbook reads one sheet of a workbook.
func ReadWorkbook(path string, opts Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %q: %w", path, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%w: workbook %q has no sheets", ErrSheetNotFound, path)
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q in %q (available: %s)", ErrSheetNotFound, sheet, path,
			strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheet, err)
	}

	table, err := buildTable(rows, opts)
	if err != nil {
		return nil, err
	}
	table.Source = path
	table.Sheet = sheet
	return table, nil
}

// buildTable converts raw rows (already decoded to UTF-8) into records.
func buildTable(rows [][]string, opts Options) (*Table, error) {
	table := &Table{}

	header := opts.HeaderRows
	if header < 0 {
		header = 0
	}
	if header > 0 && header <= len(rows) {
		table.Headers = rows[header-1]
	}

	for i := header; i < len(rows); i++ {
		if opts.MaxRows > 0 && len(table.Records) >= opts.MaxRows {
			break
		}
		if isEmptyRow(rows[i]) {
			continue
		}

		cells, err := keyCells(rows[i], table.Headers, opts.HeaderKeys)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		table.Records = append(table.Records, Record{
			Number: i + 1,
			Row:    row.New(cells),
		})
	}

	return table, nil
}

// keyCells keys the non-empty cells of a row by column letter and, with
// headerKeys, by header text. A header that names a column letter of the
// table, in any case, is not used as a key.
func keyCells(values, headers []string, headerKeys bool) (map[string]string, error) {
	cells := make(map[string]string, len(values))
	letters := make(map[string]bool, max(len(values), len(headers)))
	for i := 0; i < max(len(values), len(headers)); i++ {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		letters[row.FoldKey(col)] = true
		if i < len(values) && values[i] != "" {
			cells[col] = values[i]
		}
	}
	if !headerKeys {
		return cells, nil
	}

	for i, v := range values {
		if v == "" || i >= len(headers) {
			continue
		}
		h := strings.TrimSpace(headers[i])
		if h == "" || letters[row.FoldKey(h)] {
			continue
		}
		if _, taken := cells[h]; !taken {
			cells[h] = v
		}
	}
	return cells, nil
}

func isEmptyRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
