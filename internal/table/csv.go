package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultSeparator is used when no separator is configured.
const DefaultSeparator = ","

// ParseSeparator validates a configured separator. Only "," and ";" are
// accepted.
func ParseSeparator(sep string) (rune, error) {
	switch sep {
	case "":
		return ',', nil
	case ",", ";":
		return rune(sep[0]), nil
	}
	return 0, mdr.NewConfigurationErrorf("separator must be %q or %q, got %q", ",", ";", sep)
}

// decode strips a byte order mark and converts the input to UTF-8. Input
// that is not valid UTF-8 is read as Windows-1252, the usual encoding of
// spreadsheet exports.
func decode(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	if utf8.Valid(out) {
		return out, nil
	}
	out, err = charmap.Windows1252.NewDecoder().Bytes(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table as windows-1252: %w", err)
	}
	return out, nil
}

// Read parses a table. Columns are matched by header name; unknown columns are
// ignored and missing ones read as empty strings.
func Read(r io.Reader, sep string) (*Table, error) {
	comma, err := ParseSeparator(sep)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, mdr.NewConfigurationError("table is empty: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	if !slices.Contains(header, ColDesignation) {
		return nil, mdr.NewConfigurationErrorf("table header lacks %q column (separator %q)", ColDesignation, string(comma))
	}

	t := &Table{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read table row %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		var row FlatRow
		for i, col := range header {
			if i >= len(record) {
				break
			}
			if f := row.field(col); f != nil {
				*f = record[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFile reads a table from path.
func ReadFile(path, sep string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, sep)
}

// Write encodes the table with a header row in Columns order.
func Write(w io.Writer, t *Table, sep string) error {
	comma, err := ParseSeparator(sep)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range t.Rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("failed to write row %q: %w", r.Designation, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories.
func WriteFile(path string, t *Table, sep string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, t, sep); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
