package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// LoadErrorKind classifies why a table could not be loaded.
type LoadErrorKind int

const (
	NotFound LoadErrorKind = iota + 1
	Empty
	Decode
	Parse
)

func (k LoadErrorKind) String() string {
	switch k {
	case NotFound:
		return "file not found"
	case Empty:
		return "empty table"
	case Decode:
		return "decode failed"
	case Parse:
		return "parse failed"
	default:
		return "load failed"
	}
}

// LoadError is returned by Load for every failure.
type LoadError struct {
	Kind LoadErrorKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Kind)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsKind reports whether err is a LoadError of the given kind.
func IsKind(err error, kind LoadErrorKind) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == kind
}

// Options controls how input files are read.
type Options struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads a CSV/TSV or XLSX file into a Table. Text that is not valid UTF-8
// is decoded again as ISO-8859-1 before parsing.
func Load(path string, opt Options) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Kind: NotFound, Path: path}
		}
		return nil, &LoadError{Kind: Decode, Path: path, Err: err}
	}
	var (
		t   *Table
		err error
	)
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		t, err = loadXLSX(path, opt.Sheet)
	} else {
		t, err = loadDelimited(path, opt.Delimiter)
	}
	if err != nil {
		return nil, err
	}
	if t.Rows() == 0 {
		return nil, &LoadError{Kind: Empty, Path: path}
	}
	t.Name = filepath.Base(path)
	return t, nil
}

func loadDelimited(path string, delim rune) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: Decode, Path: path, Err: err}
	}
	text, err := decodeText(raw)
	if err != nil {
		return nil, &LoadError{Kind: Decode, Path: path, Err: err}
	}
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Kind: Empty, Path: path}
		}
		return nil, &LoadError{Kind: Parse, Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &LoadError{Kind: Parse, Path: path, Err: fmt.Errorf("read row %d: %w", len(records)+1, err)}
		}
		records = append(records, rec)
	}
	t, err := FromRecords(header, records)
	if err != nil {
		return nil, &LoadError{Kind: Parse, Path: path, Err: err}
	}
	return t, nil
}

// decodeText returns UTF-8 text, falling back to latin1 for invalid input.
func decodeText(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("latin1 fallback: %w", err)
	}
	return out, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func loadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Kind: Decode, Path: path, Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &LoadError{Kind: Empty, Path: path}
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &LoadError{Kind: Parse, Path: path, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Kind: Empty, Path: path}
	}
	header := rows[0]
	// excelize trims trailing empty cells; pad rows to the header width.
	records := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, &LoadError{Kind: Parse, Path: path, Err: fmt.Errorf("row %d: expected %d fields, saw %d", i+1, len(header), len(row))}
		}
		rec := make([]string, len(header))
		copy(rec, row)
		records = append(records, rec)
	}
	t, err := FromRecords(header, records)
	if err != nil {
		return nil, &LoadError{Kind: Parse, Path: path, Err: err}
	}
	return t, nil
}
