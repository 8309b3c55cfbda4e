// Package valuedomain converts between the MDR's typed value domains and the
// flat (variable_type, constraints) pair used in the local table.
package valuedomain

import "github.com/leapstack-labs/mdrsync/internal/mdr"

// VariableType is the flattened name of a value domain kind.
type VariableType string

// Supported variable types.
const (
	TypeString     VariableType = "string"
	TypeFloat      VariableType = "float"
	TypeInteger    VariableType = "integer"
	TypeDatetime   VariableType = "datetime"
	TypeDate       VariableType = "date"
	TypeBoolean    VariableType = "boolean"
	TypeEnumerated VariableType = "enumerated"
)

// Remote value domain type tags.
const (
	remoteString     = "STRING"
	remoteNumeric    = "NUMERIC"
	remoteDate       = "DATE"
	remoteDatetime   = "DATETIME"
	remoteBoolean    = "BOOLEAN"
	remoteEnumerated = "ENUMERATED"

	numericFloat   = "FLOAT"
	numericInteger = "INTEGER"
)

// Domain is a typed value domain. The concrete types below form a closed set.
type Domain interface {
	// VariableType returns the flattened type name matching the variant.
	VariableType() VariableType
	// Payload renders the wire representation.
	Payload() *mdr.ValueDomain
	sealed()
}

// String is a free-text domain, optionally restricted by a regular expression.
type String struct {
	Regex     string
	UseRegex  bool
	MaxLength int
}

// Numeric is a FLOAT or INTEGER domain with optional bounds.
type Numeric struct {
	Integer bool
	Min     *float64
	Max     *float64
	Unit    string
}

// Date is a DATE or DATETIME domain.
type Date struct {
	WithTime   bool
	DateFormat string
	TimeFormat string
	HourFormat string
}

// Boolean carries no constraints.
type Boolean struct{}

// PermittedValue is one value of an Enumerated domain.
type PermittedValue struct {
	Designation string
	Definition  string
	Value       string
}

// Enumerated restricts values to a fixed set.
type Enumerated struct {
	Values []PermittedValue
}

func (String) sealed()     {}
func (Numeric) sealed()    {}
func (Date) sealed()       {}
func (Boolean) sealed()    {}
func (Enumerated) sealed() {}

// VariableType implements Domain.
func (String) VariableType() VariableType { return TypeString }

// VariableType implements Domain.
func (n Numeric) VariableType() VariableType {
	if n.Integer {
		return TypeInteger
	}
	return TypeFloat
}

// VariableType implements Domain. Both remote date kinds flatten to datetime.
func (Date) VariableType() VariableType { return TypeDatetime }

// VariableType implements Domain.
func (Boolean) VariableType() VariableType { return TypeBoolean }

// VariableType implements Domain.
func (Enumerated) VariableType() VariableType { return TypeEnumerated }

// Payload implements Domain.
func (s String) Payload() *mdr.ValueDomain {
	return &mdr.ValueDomain{
		Type: remoteString,
		Text: &mdr.TextDomain{
			UseRegEx:         s.UseRegex,
			RegEx:            s.Regex,
			UseMaximumLength: s.MaxLength > 0,
			MaximumLength:    s.MaxLength,
		},
	}
}

// Payload implements Domain.
func (n Numeric) Payload() *mdr.ValueDomain {
	kind := numericFloat
	if n.Integer {
		kind = numericInteger
	}
	return &mdr.ValueDomain{
		Type: remoteNumeric,
		Numeric: &mdr.NumericDomain{
			Type:          kind,
			UseMinimum:    n.Min != nil,
			UseMaximum:    n.Max != nil,
			UnitOfMeasure: n.Unit,
			Minimum:       n.Min,
			Maximum:       n.Max,
		},
	}
}

// Payload implements Domain.
func (d Date) Payload() *mdr.ValueDomain {
	kind := remoteDate
	if d.WithTime {
		kind = remoteDatetime
	}
	return &mdr.ValueDomain{
		Type: kind,
		Datetime: &mdr.DatetimeDomain{
			Date:       d.DateFormat,
			Time:       d.TimeFormat,
			HourFormat: d.HourFormat,
		},
	}
}

// Payload implements Domain.
func (Boolean) Payload() *mdr.ValueDomain {
	return &mdr.ValueDomain{Type: remoteBoolean}
}

// Payload implements Domain.
func (e Enumerated) Payload() *mdr.ValueDomain {
	values := make([]mdr.PermittedValue, 0, len(e.Values))
	for _, v := range e.Values {
		values = append(values, mdr.PermittedValue{
			Value: v.Value,
			Definitions: []mdr.Definition{{
				Designation: v.Designation,
				Definition:  v.Definition,
				Language:    mdr.LanguageEnglish,
			}},
		})
	}
	return &mdr.ValueDomain{Type: remoteEnumerated, PermittedValues: values}
}

// Fallback is the domain substituted when encoding fails: unrestricted text.
func Fallback() *mdr.ValueDomain {
	return String{}.Payload()
}
