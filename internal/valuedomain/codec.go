package valuedomain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
)

// valueSetSeparator joins enumerated values in the constraints column.
const valueSetSeparator = ", "

// constraints is the JSON document stored in the table's constraints column.
// Exactly one field is populated, depending on the variable type.
type constraints struct {
	Regex    *string          `json:"regex,omitempty"`
	Range    *rangeConstraint `json:"range,omitempty"`
	Date     *dateConstraint  `json:"date,omitempty"`
	ValueSet *string          `json:"value_set,omitempty"`
}

type rangeConstraint struct {
	Min  *number `json:"min"`
	Max  *number `json:"max"`
	Unit string  `json:"unit"`
}

type dateConstraint struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	HourFormat string `json:"hourFormat"`
}

// number accepts JSON numbers and numeric strings.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = number(f)
	return nil
}

func (n *number) float() *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}

func fromFloat(f *float64) *number {
	if f == nil {
		return nil
	}
	n := number(*f)
	return &n
}

// Parse converts a remote value domain into its typed variant.
func Parse(vd *mdr.ValueDomain) (Domain, error) {
	if vd == nil {
		return nil, &DecodeError{Cause: errors.New("missing value domain")}
	}
	kind := strings.ToUpper(vd.Type)

	switch {
	case kind == remoteString:
		d := String{}
		if vd.Text != nil {
			d.Regex = vd.Text.RegEx
			d.UseRegex = vd.Text.UseRegEx
			if vd.Text.UseMaximumLength {
				d.MaxLength = vd.Text.MaximumLength
			}
		}
		return d, nil

	case kind == remoteNumeric:
		if vd.Numeric == nil {
			return nil, &DecodeError{RemoteType: vd.Type, Cause: errors.New("missing numeric block")}
		}
		var d Numeric
		switch strings.ToUpper(vd.Numeric.Type) {
		case numericInteger:
			d.Integer = true
		case numericFloat:
		default:
			return nil, &DecodeError{RemoteType: vd.Type, Cause: fmt.Errorf("%w: numeric %q", ErrUnsupportedKind, vd.Numeric.Type)}
		}
		d.Unit = vd.Numeric.UnitOfMeasure
		d.Min = vd.Numeric.Minimum
		d.Max = vd.Numeric.Maximum
		return d, nil

	case strings.Contains(kind, remoteDate):
		d := Date{WithTime: kind == remoteDatetime}
		if vd.Datetime != nil {
			d.DateFormat = vd.Datetime.Date
			d.TimeFormat = vd.Datetime.Time
			d.HourFormat = vd.Datetime.HourFormat
		}
		return d, nil

	case kind == remoteBoolean:
		return Boolean{}, nil

	case kind == remoteEnumerated:
		d := Enumerated{Values: make([]PermittedValue, 0, len(vd.PermittedValues))}
		for _, pv := range vd.PermittedValues {
			v := PermittedValue{Value: pv.Value}
			if len(pv.Definitions) > 0 {
				v.Designation = pv.Definitions[0].Designation
				v.Definition = pv.Definitions[0].Definition
			}
			d.Values = append(d.Values, v)
		}
		return d, nil
	}

	return nil, &DecodeError{RemoteType: vd.Type, Cause: ErrUnsupportedKind}
}

// Decode flattens a remote value domain into a variable type and the JSON
// constraints document. Boolean domains have no constraints.
func Decode(vd *mdr.ValueDomain) (VariableType, string, error) {
	d, err := Parse(vd)
	if err != nil {
		return "", "", err
	}
	c, err := Constraints(d)
	if err != nil {
		return "", "", &DecodeError{RemoteType: vd.Type, Cause: err}
	}
	return d.VariableType(), c, nil
}

// Constraints renders the constraints document for d, or "" when the variant
// carries none.
func Constraints(d Domain) (string, error) {
	var doc constraints
	switch v := d.(type) {
	case String:
		doc.Regex = &v.Regex
	case Numeric:
		doc.Range = &rangeConstraint{Min: fromFloat(v.Min), Max: fromFloat(v.Max), Unit: v.Unit}
	case Date:
		doc.Date = &dateConstraint{Date: v.DateFormat, Time: v.TimeFormat, HourFormat: v.HourFormat}
	case Boolean:
		return "", nil
	case Enumerated:
		values := make([]string, 0, len(v.Values))
		for _, pv := range v.Values {
			values = append(values, pv.Value)
		}
		joined := strings.Join(values, valueSetSeparator)
		doc.ValueSet = &joined
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedKind, d)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Build creates the typed variant for a local variable type from its
// constraints document. An empty variable type is treated as string.
func Build(variableType, constraintsJSON string) (Domain, error) {
	vt := VariableType(strings.ToLower(strings.TrimSpace(variableType)))
	if vt == "" {
		vt = TypeString
	}

	switch vt {
	case TypeBoolean:
		return Boolean{}, nil
	case TypeString, TypeFloat, TypeInteger, TypeDatetime, TypeDate, TypeEnumerated:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, variableType)
	}

	var doc constraints
	if err := json.Unmarshal([]byte(constraintsJSON), &doc); err != nil {
		return nil, fmt.Errorf("malformed constraints: %w", err)
	}

	switch vt {
	case TypeString:
		if doc.Regex == nil {
			return nil, errors.New(`constraints missing "regex"`)
		}
		return String{Regex: *doc.Regex, UseRegex: *doc.Regex != ""}, nil
	case TypeFloat, TypeInteger:
		if doc.Range == nil {
			return nil, errors.New(`constraints missing "range"`)
		}
		return Numeric{
			Integer: vt == TypeInteger,
			Min:     doc.Range.Min.float(),
			Max:     doc.Range.Max.float(),
			Unit:    doc.Range.Unit,
		}, nil
	case TypeDatetime, TypeDate:
		if doc.Date == nil {
			return nil, errors.New(`constraints missing "date"`)
		}
		return Date{
			WithTime:   vt == TypeDatetime,
			DateFormat: doc.Date.Date,
			TimeFormat: doc.Date.Time,
			HourFormat: doc.Date.HourFormat,
		}, nil
	default:
		if doc.ValueSet == nil {
			return nil, errors.New(`constraints missing "value_set"`)
		}
		var values []PermittedValue
		for _, v := range strings.Split(*doc.ValueSet, valueSetSeparator) {
			values = append(values, PermittedValue{Designation: v, Definition: v, Value: v})
		}
		return Enumerated{Values: values}, nil
	}
}

// Encode builds the remote payload for a local variable type and constraints
// document. On error the caller decides whether to substitute Fallback().
func Encode(variableType, constraintsJSON string) (*mdr.ValueDomain, error) {
	d, err := Build(variableType, constraintsJSON)
	if err != nil {
		return nil, &EncodeError{VariableType: variableType, Cause: err}
	}
	return d.Payload(), nil
}
