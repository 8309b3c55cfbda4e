package valuedomain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestDecode(t *testing.T) {
	tests := []struct {
		name            string
		vd              *mdr.ValueDomain
		wantType        VariableType
		wantConstraints string
	}{
		{
			name:            "string",
			vd:              &mdr.ValueDomain{Type: "STRING", Text: &mdr.TextDomain{UseRegEx: true, RegEx: "^[A-Z]+$"}},
			wantType:        TypeString,
			wantConstraints: `{"regex":"^[A-Z]+$"}`,
		},
		{
			name:            "string without text block",
			vd:              &mdr.ValueDomain{Type: "STRING"},
			wantType:        TypeString,
			wantConstraints: `{"regex":""}`,
		},
		{
			name: "numeric integer",
			vd: &mdr.ValueDomain{Type: "NUMERIC", Numeric: &mdr.NumericDomain{
				Type: "INTEGER", Minimum: ptr(0), Maximum: ptr(10), UnitOfMeasure: "years",
			}},
			wantType:        TypeInteger,
			wantConstraints: `{"range":{"min":0,"max":10,"unit":"years"}}`,
		},
		{
			name: "numeric float without bounds",
			vd: &mdr.ValueDomain{Type: "NUMERIC", Numeric: &mdr.NumericDomain{
				Type: "FLOAT", UnitOfMeasure: "kg",
			}},
			wantType:        TypeFloat,
			wantConstraints: `{"range":{"min":null,"max":null,"unit":"kg"}}`,
		},
		{
			name: "datetime",
			vd: &mdr.ValueDomain{Type: "DATETIME", Datetime: &mdr.DatetimeDomain{
				Date: "DD.MM.YYYY", Time: "HH:MM", HourFormat: "24h",
			}},
			wantType:        TypeDatetime,
			wantConstraints: `{"date":{"date":"DD.MM.YYYY","time":"HH:MM","hourFormat":"24h"}}`,
		},
		{
			name:            "date flattens to datetime",
			vd:              &mdr.ValueDomain{Type: "DATE", Datetime: &mdr.DatetimeDomain{Date: "ISO_8601"}},
			wantType:        TypeDatetime,
			wantConstraints: `{"date":{"date":"ISO_8601","time":"","hourFormat":""}}`,
		},
		{
			name:     "boolean",
			vd:       &mdr.ValueDomain{Type: "BOOLEAN"},
			wantType: TypeBoolean,
		},
		{
			name: "enumerated",
			vd: &mdr.ValueDomain{Type: "ENUMERATED", PermittedValues: []mdr.PermittedValue{
				{Value: "male"}, {Value: "female"}, {Value: "other"},
			}},
			wantType:        TypeEnumerated,
			wantConstraints: `{"value_set":"male, female, other"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotConstraints, err := Decode(tt.vd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, gotType)
			if tt.wantConstraints == "" {
				assert.Empty(t, gotConstraints)
				return
			}
			assert.JSONEq(t, tt.wantConstraints, gotConstraints)
		})
	}
}

func TestDecode_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		vd   *mdr.ValueDomain
	}{
		{name: "unknown type", vd: &mdr.ValueDomain{Type: "CATALOG"}},
		{name: "unknown numeric kind", vd: &mdr.ValueDomain{Type: "NUMERIC", Numeric: &mdr.NumericDomain{Type: "DECIMAL"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.vd)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedKind)

			var decErr *DecodeError
			assert.True(t, errors.As(err, &decErr))
		})
	}
}

func TestDecode_NilValueDomain(t *testing.T) {
	_, _, err := Decode(nil)
	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name         string
		variableType string
		constraints  string
		want         string
	}{
		{
			name:         "string with regex",
			variableType: "string",
			constraints:  `{"regex":"^\\d+$"}`,
			want:         `{"type":"STRING","text":{"useRegEx":true,"regEx":"^\\d+$","useMaximumLength":false,"maximumLength":0}}`,
		},
		{
			name:         "empty type defaults to string",
			variableType: "",
			constraints:  `{"regex":""}`,
			want:         `{"type":"STRING","text":{"useRegEx":false,"regEx":"","useMaximumLength":false,"maximumLength":0}}`,
		},
		{
			name:         "integer",
			variableType: "integer",
			constraints:  `{"range":{"min":0,"max":10,"unit":"years"}}`,
			want:         `{"type":"NUMERIC","numeric":{"type":"INTEGER","useMinimum":true,"useMaximum":true,"unitOfMeasure":"years","minimum":0,"maximum":10}}`,
		},
		{
			name:         "float with string bounds and open maximum",
			variableType: "float",
			constraints:  `{"range":{"min":"1.5","max":null,"unit":"kg"}}`,
			want:         `{"type":"NUMERIC","numeric":{"type":"FLOAT","useMinimum":true,"useMaximum":false,"unitOfMeasure":"kg","minimum":1.5,"maximum":null}}`,
		},
		{
			name:         "datetime",
			variableType: "datetime",
			constraints:  `{"date":{"date":"DD.MM.YYYY","time":"HH:MM:SS","hourFormat":"24h"}}`,
			want:         `{"type":"DATETIME","datetime":{"date":"DD.MM.YYYY","time":"HH:MM:SS","hourFormat":"24h"}}`,
		},
		{
			name:         "date",
			variableType: "date",
			constraints:  `{"date":{"date":"ISO_8601","time":"","hourFormat":""}}`,
			want:         `{"type":"DATE","datetime":{"date":"ISO_8601","time":"","hourFormat":""}}`,
		},
		{
			name:         "boolean ignores constraints",
			variableType: "boolean",
			constraints:  "",
			want:         `{"type":"BOOLEAN"}`,
		},
		{
			name:         "enumerated",
			variableType: "enumerated",
			constraints:  `{"value_set":"yes, no"}`,
			want: `{"type":"ENUMERATED","permittedValues":[` +
				`{"definitions":[{"designation":"yes","definition":"yes","language":"en"}],"value":"yes"},` +
				`{"definitions":[{"designation":"no","definition":"no","language":"en"}],"value":"no"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vd, err := Encode(tt.variableType, tt.constraints)
			require.NoError(t, err)
			got, err := json.Marshal(vd)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name            string
		variableType    string
		constraints     string
		wantUnsupported bool
	}{
		{name: "malformed json", variableType: "string", constraints: "not valid json"},
		{name: "empty constraints", variableType: "integer", constraints: ""},
		{name: "missing regex", variableType: "string", constraints: `{"range":{}}`},
		{name: "missing range", variableType: "float", constraints: `{"regex":"x"}`},
		{name: "missing date", variableType: "datetime", constraints: `{}`},
		{name: "missing value set", variableType: "enumerated", constraints: `{}`},
		{name: "bad bound", variableType: "integer", constraints: `{"range":{"min":"ten"}}`},
		{name: "unknown type", variableType: "blob", constraints: `{}`, wantUnsupported: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vd, err := Encode(tt.variableType, tt.constraints)
			require.Error(t, err)
			assert.Nil(t, vd)

			var encErr *EncodeError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.variableType, encErr.VariableType)
			assert.Equal(t, tt.wantUnsupported, errors.Is(err, ErrUnsupportedKind))
		})
	}
}

func TestFallback(t *testing.T) {
	vd := Fallback()
	require.NotNil(t, vd.Text)
	assert.Equal(t, "STRING", vd.Type)
	assert.False(t, vd.Text.UseRegEx)
	assert.Nil(t, vd.Numeric)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	domains := []*mdr.ValueDomain{
		String{Regex: "^a$", UseRegex: true}.Payload(),
		Numeric{Integer: true, Min: ptr(1), Max: ptr(5), Unit: "points"}.Payload(),
		Numeric{Min: ptr(0.5), Max: ptr(2.5), Unit: "l"}.Payload(),
		Date{WithTime: true, DateFormat: "YYYY-MM-DD", TimeFormat: "HH:MM", HourFormat: "24h"}.Payload(),
		Boolean{}.Payload(),
		Enumerated{Values: []PermittedValue{
			{Designation: "a", Definition: "a", Value: "a"},
			{Designation: "b", Definition: "b", Value: "b"},
		}}.Payload(),
	}

	for _, vd := range domains {
		t.Run(vd.Type, func(t *testing.T) {
			vt, c, err := Decode(vd)
			require.NoError(t, err)

			back, err := Encode(string(vt), c)
			require.NoError(t, err)

			want, err := json.Marshal(vd)
			require.NoError(t, err)
			got, err := json.Marshal(back)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}
