package table

import (
	"strings"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
)

// Default main system.
const (
	DefaultMainSystemName = "i2b2"
	DefaultMainSystemType = "postgres"
)

// MainSystem identifies the authoritative source system.
type MainSystem struct {
	Name string
	Type string
}

// OrDefault fills empty fields with the default main system.
func (m MainSystem) OrDefault() MainSystem {
	if m.Name == "" {
		m.Name = DefaultMainSystemName
	}
	if m.Type == "" {
		m.Type = DefaultMainSystemType
	}
	return m
}

func (m MainSystem) String() string {
	return m.Type + "/" + m.Name
}

// Table is an ordered collection of rows.
type Table struct {
	Rows []FlatRow
}

// New creates a table from rows.
func New(rows ...FlatRow) *Table {
	return &Table{Rows: rows}
}

// Append adds rows at the end of the table.
func (t *Table) Append(rows ...FlatRow) {
	t.Rows = append(t.Rows, rows...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// RowsForVariable returns every row whose variable_name equals name, in
// table order.
func (t *Table) RowsForVariable(name string) []FlatRow {
	var out []FlatRow
	for _, r := range t.Rows {
		if r.VariableName == name {
			out = append(out, r)
		}
	}
	return out
}

type mainKey struct {
	designation  string
	key          string
	variableName string
}

// MainRows returns the rows of the main system in table order. Two rows with
// the same (designation, key, variable_name) make the table unusable for a
// push and yield a ConfigurationError.
func (t *Table) MainRows(main MainSystem) ([]FlatRow, error) {
	main = main.OrDefault()

	seen := make(map[mainKey]int)
	var out []FlatRow
	var dups []string
	for _, r := range t.Rows {
		if !r.IsSystem(main.Name, main.Type) {
			continue
		}
		k := mainKey{designation: r.Designation, key: r.Key, variableName: r.VariableName}
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, r.Designation+"/"+r.Key+"/"+r.VariableName)
		}
		out = append(out, r)
	}

	if len(dups) > 0 {
		return nil, mdr.NewConfigurationErrorf(
			"main system %s has duplicate (designation, key, variable_name) entries: %s",
			main, strings.Join(dups, ", "))
	}
	return out, nil
}

// Designations returns the distinct designations of rows in first-seen order.
func Designations(rows []FlatRow) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, r := range rows {
		if seen[r.Designation] {
			continue
		}
		seen[r.Designation] = true
		out = append(out, r.Designation)
	}
	return out
}
