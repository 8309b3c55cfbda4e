package slot

import (
	"github.com/leapstack-labs/mdrsync/internal/sqlmap"
	"github.com/leapstack-labs/mdrsync/internal/table"
)

// Collapse folds all rows of one variable into a slot configuration. Groups
// keep the order in which (system type, system name) first appear. A pair
// that appears twice is an IntegrityError wrapping ErrDuplicateSystemEntry.
// When sqls has a fragment for (system name, variable name) it is attached
// as sql_statement. Rows without any system are ignored.
func Collapse(rows []table.FlatRow, sqls sqlmap.Map) (*Config, error) {
	var variableName, key, subject string
	if len(rows) > 0 {
		variableName = rows[0].VariableName
		subject = rows[0].Designation
	}
	for _, r := range rows {
		if r.Key != "" {
			key = r.Key
			break
		}
	}

	cfg := NewConfig(variableName, key)
	for _, r := range rows {
		if !r.HasSystem() {
			continue
		}

		entry := SystemEntry{
			DQAAssessment:         Assessment(r.DQAAssessment),
			DataMap:               Text(r.DataMap),
			Filter:                Text(r.Filter),
			SourceVariableName:    Text(r.SourceVariableName),
			SourceTableName:       Text(r.SourceTableName),
			Constraints:           Text(r.Constraints),
			PlausibilityRelation:  Text(r.PlausibilityRelation),
			RestrictingDateVar:    Text(r.RestrictingDateVar),
			RestrictingDateFormat: Text(r.RestrictingDateFormat),
		}
		if sql, ok := sqls.Lookup(r.SourceSystemName, variableName); ok {
			entry.SQLStatement = Text(sql)
		}

		if !cfg.Put(r.SourceSystemType, r.SourceSystemName, entry) {
			return nil, &IntegrityError{
				Subject:    subject,
				SystemType: r.SourceSystemType,
				SystemName: r.SourceSystemName,
				Cause:      ErrDuplicateSystemEntry,
			}
		}
	}
	return cfg, nil
}
