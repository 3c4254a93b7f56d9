package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"mercator-hq/pricelist/pkg/row"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("SetSheetName: %v", err)
		}
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "supplier.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestReadWorkbook(t *testing.T) {
	path := writeWorkbook(t, "Prices", [][]any{
		{"Code", "Article", "Barcode", "Type", "Name", "Stock", "Price"},
		{"1", "va-001", "8011003", "", "VERSACE EROS EDT 100ml", "5", "45.50"},
		{},
		{"2", "ch-002", "3145891", "TST", "CHANEL ALLURE HOMME TST 50ml", "1", "60"},
	})

	table, err := ReadWorkbook(path, Options{HeaderRows: 1})
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}

	if table.Sheet != "Prices" {
		t.Errorf("Sheet = %q, want first sheet", table.Sheet)
	}
	if len(table.Headers) != 7 || table.Headers[4] != "Name" {
		t.Errorf("Headers = %v", table.Headers)
	}
	if len(table.Records) != 2 {
		t.Fatalf("got %d records, want 2 (blank row skipped)", len(table.Records))
	}

	first := table.Records[0]
	if first.Number != 2 {
		t.Errorf("first record Number = %d, want 2", first.Number)
	}
	if v, _ := first.Row.Get("E"); v != "VERSACE EROS EDT 100ml" {
		t.Errorf("E = %q", v)
	}
	if first.Row.Has("D") {
		t.Error("empty cell D should be absent")
	}
	if first.Row.Has("Name") {
		t.Error("header keys should be off by default")
	}

	if table.Records[1].Number != 4 {
		t.Errorf("second record Number = %d, want 4", table.Records[1].Number)
	}
}

func TestReadWorkbook_SheetSelection(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{{"a"}, {"b"}})

	if _, err := ReadWorkbook(path, Options{Sheet: "Missing"}); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("error = %v, want ErrSheetNotFound", err)
	}

	table, err := ReadWorkbook(path, Options{Sheet: "Sheet1"})
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}
	if len(table.Records) != 2 {
		t.Errorf("got %d records without header rows, want 2", len(table.Records))
	}
}

func TestReadCSV_Encodings(t *testing.T) {
	text := "Артикул;Наименование;Цена\nA-1;Духи женские VERSACE 50мл;1200\n"

	tests := []struct {
		name     string
		encoding string
		encode   func(string) []byte
	}{
		{
			name:     "utf-8",
			encoding: "utf-8",
			encode:   func(s string) []byte { return []byte(s) },
		},
		{
			name:     "utf-8 with BOM",
			encoding: "",
			encode:   func(s string) []byte { return append([]byte{0xEF, 0xBB, 0xBF}, s...) },
		},
		{
			name:     "windows-1251",
			encoding: "windows-1251",
			encode: func(s string) []byte {
				b, _ := charmap.Windows1251.NewEncoder().Bytes([]byte(s))
				return b
			},
		},
		{
			name:     "koi8-r",
			encoding: "KOI8-R",
			encode: func(s string) []byte {
				b, _ := charmap.KOI8R.NewEncoder().Bytes([]byte(s))
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadCSV(bytes.NewReader(tt.encode(text)), Options{
				HeaderRows: 1,
				HeaderKeys: true,
				Delimiter:  ';',
				Encoding:   tt.encoding,
			})
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			if len(table.Records) != 1 {
				t.Fatalf("got %d records, want 1", len(table.Records))
			}

			r := table.Records[0].Row
			if v, _ := r.Get("B"); v != "Духи женские VERSACE 50мл" {
				t.Errorf("B = %q", v)
			}
			if v, _ := r.Get("наименование"); v != "Духи женские VERSACE 50мл" {
				t.Errorf("header alias = %q", v)
			}
			if table.Headers[0] != "Артикул" {
				t.Errorf("Headers[0] = %q", table.Headers[0])
			}
		})
	}
}

func TestReadCSV_MaxRows(t *testing.T) {
	data := "a,b\n1,2\n3,4\n5,6\n"

	table, err := ReadCSV(strings.NewReader(data), Options{HeaderRows: 1, MaxRows: 2})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(table.Records) != 2 {
		t.Errorf("got %d records, want 2", len(table.Records))
	}
}

func TestReadCSV_UnknownEncoding(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a"), Options{Encoding: "ebcdic"})
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("error = %v, want ErrUnknownEncoding", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "prices.csv")
	if err := os.WriteFile(csvPath, []byte("x,y\nfoo,bar\n"), 0644); err != nil {
		t.Fatal(err)
	}
	table, err := Open(csvPath, Options{HeaderRows: 1})
	if err != nil {
		t.Fatalf("Open(csv) error = %v", err)
	}
	if table.Source != csvPath || len(table.Records) != 1 {
		t.Errorf("table = %+v", table)
	}

	if _, err := Open(filepath.Join(dir, "prices.ods"), Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open(ods) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestKeyCells_ColumnLetters(t *testing.T) {
	values := make([]string, 28)
	values[0] = "first"
	values[25] = "z"
	values[27] = "ab"

	cells, err := keyCells(values, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "first", "Z": "z", "AB": "ab"}
	if len(cells) != len(want) {
		t.Fatalf("cells = %v", cells)
	}
	for k, v := range want {
		if cells[k] != v {
			t.Errorf("cells[%s] = %q, want %q", k, cells[k], v)
		}
	}
}

func TestKeyCells_HeaderNamingColumnLetter(t *testing.T) {
	headers := []string{"e", "Brand", "", "", "E "}
	values := []string{"from A", "Chanel", "", "", ""}

	cells, err := keyCells(values, headers, true)
	if err != nil {
		t.Fatal(err)
	}
	r := row.New(cells)
	if v, ok := r.Get("E"); ok {
		t.Errorf("Get(E) = %q, want no column E", v)
	}
	if v, _ := r.Get("A"); v != "from A" {
		t.Errorf("Get(A) = %q, want %q", v, "from A")
	}
	if v, _ := r.Get("brand"); v != "Chanel" {
		t.Errorf("Get(brand) = %q, want Chanel", v)
	}
}
