package slot

import (
	"fmt"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/sqlmap"
	"github.com/leapstack-labs/mdrsync/internal/table"
)

// FromElement extracts and parses the "dqa" slot of an element. An element
// without any slots yields (nil, nil); an element with slots but no "dqa"
// slot, more than one, or an unparseable one yields an IntegrityError.
func FromElement(e *mdr.DataElement) (*Config, error) {
	if len(e.Slots) == 0 {
		return nil, nil
	}
	subject := e.FirstDefinition().Designation

	values := e.SlotValues(mdr.SlotDQA)
	switch len(values) {
	case 0:
		return nil, &IntegrityError{Subject: subject, Cause: ErrMissingDQASlot}
	case 1:
	default:
		return nil, &IntegrityError{Subject: subject, Cause: fmt.Errorf("%w: %d dqa slots", ErrMalformedSlot, len(values))}
	}

	cfg, err := Parse(values[0])
	if err != nil {
		return nil, &IntegrityError{Subject: subject, Cause: fmt.Errorf("%w: %v", ErrMalformedSlot, err)}
	}
	return cfg, nil
}

// Expand produces one row per (system type, system name) in stored order.
// Rows carry the element's designation and definition plus the slot's
// variable_name and key; variable_type is left for the caller to fill.
func Expand(cfg *Config, designation, definition string) []table.FlatRow {
	if cfg == nil {
		return nil
	}

	var rows []table.FlatRow
	cfg.Each(func(systemType, systemName string, entry SystemEntry) {
		rows = append(rows, table.FlatRow{
			Designation:           designation,
			Definition:            definition,
			VariableName:          string(cfg.VariableName),
			Key:                   string(cfg.Key),
			DQAAssessment:         string(entry.DQAAssessment),
			SourceVariableName:    string(entry.SourceVariableName),
			SourceTableName:       string(entry.SourceTableName),
			SourceSystemName:      systemName,
			SourceSystemType:      systemType,
			Constraints:           string(entry.Constraints),
			Filter:                string(entry.Filter),
			DataMap:               string(entry.DataMap),
			PlausibilityRelation:  string(entry.PlausibilityRelation),
			RestrictingDateVar:    string(entry.RestrictingDateVar),
			RestrictingDateFormat: string(entry.RestrictingDateFormat),
		})
	})
	return rows
}

// CollectSQL adds the configuration's sql_statements to m under the given
// variable name.
func CollectSQL(cfg *Config, variableName string, m sqlmap.Map) {
	if cfg == nil || variableName == "" {
		return
	}
	for system, sql := range cfg.SQLStatements() {
		m.Set(system, variableName, sql)
	}
}
