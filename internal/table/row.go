// Package table holds the flat, system/variable keyed representation of MDR
// data elements and its CSV encoding.
package table

// Column names in the order pull writes them.
const (
	ColDesignation           = "designation"
	ColDefinition            = "definition"
	ColVariableName          = "variable_name"
	ColKey                   = "key"
	ColDQAAssessment         = "dqa_assessment"
	ColVariableType          = "variable_type"
	ColSourceVariableName    = "source_variable_name"
	ColSourceTableName       = "source_table_name"
	ColSourceSystemName      = "source_system_name"
	ColSourceSystemType      = "source_system_type"
	ColConstraints           = "constraints"
	ColFilter                = "filter"
	ColDataMap               = "data_map"
	ColPlausibilityRelation  = "plausibility_relation"
	ColRestrictingDateVar    = "restricting_date_var"
	ColRestrictingDateFormat = "restricting_date_format"
)

// Columns lists every FlatRow column in output order.
var Columns = []string{
	ColDesignation,
	ColDefinition,
	ColVariableName,
	ColKey,
	ColDQAAssessment,
	ColVariableType,
	ColSourceVariableName,
	ColSourceTableName,
	ColSourceSystemName,
	ColSourceSystemType,
	ColConstraints,
	ColFilter,
	ColDataMap,
	ColPlausibilityRelation,
	ColRestrictingDateVar,
	ColRestrictingDateFormat,
}

// FlatRow is one (element, source system) combination. Empty strings are
// values, not missing data.
type FlatRow struct {
	Designation           string `json:"designation"`
	Definition            string `json:"definition"`
	VariableName          string `json:"variable_name"`
	Key                   string `json:"key"`
	DQAAssessment         string `json:"dqa_assessment"`
	VariableType          string `json:"variable_type"`
	SourceVariableName    string `json:"source_variable_name"`
	SourceTableName       string `json:"source_table_name"`
	SourceSystemName      string `json:"source_system_name"`
	SourceSystemType      string `json:"source_system_type"`
	Constraints           string `json:"constraints"`
	Filter                string `json:"filter"`
	DataMap               string `json:"data_map"`
	PlausibilityRelation  string `json:"plausibility_relation"`
	RestrictingDateVar    string `json:"restricting_date_var"`
	RestrictingDateFormat string `json:"restricting_date_format"`
}

// field returns a pointer to the field backing column, or nil.
func (r *FlatRow) field(column string) *string {
	switch column {
	case ColDesignation:
		return &r.Designation
	case ColDefinition:
		return &r.Definition
	case ColVariableName:
		return &r.VariableName
	case ColKey:
		return &r.Key
	case ColDQAAssessment:
		return &r.DQAAssessment
	case ColVariableType:
		return &r.VariableType
	case ColSourceVariableName:
		return &r.SourceVariableName
	case ColSourceTableName:
		return &r.SourceTableName
	case ColSourceSystemName:
		return &r.SourceSystemName
	case ColSourceSystemType:
		return &r.SourceSystemType
	case ColConstraints:
		return &r.Constraints
	case ColFilter:
		return &r.Filter
	case ColDataMap:
		return &r.DataMap
	case ColPlausibilityRelation:
		return &r.PlausibilityRelation
	case ColRestrictingDateVar:
		return &r.RestrictingDateVar
	case ColRestrictingDateFormat:
		return &r.RestrictingDateFormat
	}
	return nil
}

// Values returns the row's values in Columns order.
func (r FlatRow) Values() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = *r.field(c)
	}
	return out
}

// HasSystem reports whether the row describes a concrete source system.
func (r FlatRow) HasSystem() bool {
	return r.SourceSystemType != "" || r.SourceSystemName != ""
}

// IsSystem reports whether the row belongs to the named system.
func (r FlatRow) IsSystem(name, systemType string) bool {
	return r.SourceSystemName == name && r.SourceSystemType == systemType
}
