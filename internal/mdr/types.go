// Package mdr models the metadata repository's REST resources and provides
// an HTTP client for them.
package mdr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Element types and statuses used by the MDR.
const (
	ElementTypeDataElement = "DATAELEMENT"
	ElementTypeNamespace   = "NAMESPACE"

	StatusReleased = "RELEASED"

	// LanguageEnglish is the language tag attached to every definition we write.
	LanguageEnglish = "en"
)

// Well-known slot names.
const (
	SlotDQA      = "dqa"
	SlotFHIRPath = "fhir-path"
)

// Role selects which namespace listing is consulted.
type Role string

// Namespace roles.
const (
	RoleRead  Role = "READ"
	RoleWrite Role = "WRITE"
)

// ID is an MDR identifier. The MDR sends identifiers as JSON numbers; a
// quoted identifier is accepted as well. The decimal text is kept as is.
type ID string

func (id ID) String() string { return string(id) }

// MarshalJSON writes a plain decimal identifier as a JSON number.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isNumber() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number, a string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid identifier %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) isNumber() bool {
	if id == "" || (len(id) > 1 && id[0] == '0') {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Identification is the identity block of any MDR element.
type Identification struct {
	ElementType   string `json:"elementType,omitempty"`
	NamespaceID   ID     `json:"namespaceId,omitempty"`
	NamespaceURN  string `json:"namespaceUrn,omitempty"`
	Status        string `json:"status,omitempty"`
	URN           string `json:"urn,omitempty"`
	Identifier    ID     `json:"identifier,omitempty"`
	Revision      int    `json:"revision,omitempty"`
	HideNamespace *bool  `json:"hideNamespace,omitempty"`
}

// Definition is a localized designation with its description.
type Definition struct {
	Designation string `json:"designation"`
	Definition  string `json:"definition"`
	Language    string `json:"language"`
}

// Slot is an opaque named payload attached to an element.
type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DataElement is a data element as returned by GET element/{urn} and as sent
// by POST element / PUT element/{urn}.
type DataElement struct {
	Identification      Identification `json:"identification"`
	Definitions         []Definition   `json:"definitions"`
	ValueDomainURN      string         `json:"valueDomainUrn,omitempty"`
	ValueDomain         *ValueDomain   `json:"valueDomain,omitempty"`
	Slots               []Slot         `json:"slots"`
	ConceptAssociations []any          `json:"conceptAssociations"`
}

// Designations returns every designation of the element in definition order.
func (e *DataElement) Designations() []string {
	out := make([]string, 0, len(e.Definitions))
	for _, d := range e.Definitions {
		out = append(out, d.Designation)
	}
	return out
}

// FirstDefinition returns the first definition, or a zero Definition.
func (e *DataElement) FirstDefinition() Definition {
	if len(e.Definitions) == 0 {
		return Definition{}
	}
	return e.Definitions[0]
}

// SlotValues returns the values of all slots with the given name.
func (e *DataElement) SlotValues(name string) []string {
	var out []string
	for _, s := range e.Slots {
		if s.Name == name {
			out = append(out, s.Value)
		}
	}
	return out
}

// SlotsExcept returns all slots whose name differs from name.
func (e *DataElement) SlotsExcept(name string) []Slot {
	out := make([]Slot, 0, len(e.Slots))
	for _, s := range e.Slots {
		if s.Name != name {
			out = append(out, s)
		}
	}
	return out
}

// Namespace is one entry of the namespace listing.
type Namespace struct {
	Identification Identification `json:"identification"`
	Definitions    []Definition   `json:"definitions"`
}

// HasDesignation reports whether any definition carries designation.
func (n Namespace) HasDesignation(designation string) bool {
	for _, d := range n.Definitions {
		if d.Designation == designation {
			return true
		}
	}
	return false
}

// NamespaceListing maps a role to the namespaces visible under it.
type NamespaceListing map[Role][]Namespace

// NamespaceRequest is the body of POST namespaces/.
type NamespaceRequest struct {
	Identification Identification `json:"identification"`
	Definitions    []Definition   `json:"definitions"`
}

// NewNamespaceRequest builds a hidden, released namespace with one English definition.
func NewNamespaceRequest(designation, definition string) NamespaceRequest {
	hide := true
	return NamespaceRequest{
		Identification: Identification{
			ElementType:   ElementTypeNamespace,
			HideNamespace: &hide,
			Status:        StatusReleased,
		},
		Definitions: []Definition{{
			Designation: designation,
			Definition:  definition,
			Language:    LanguageEnglish,
		}},
	}
}

// Member is one entry of namespaces/{id}/members.
type Member struct {
	ElementURN string `json:"elementUrn"`
	Status     string `json:"status"`
}

// IsReleasedDataElement reports whether the member is a released data element
// of the namespace with the given identifier.
func (m Member) IsReleasedDataElement(namespaceID string) bool {
	return m.Status == StatusReleased && strings.Contains(m.ElementURN, namespaceID+":dataelement:")
}

// ValueDomain is the wire form of a value domain. Exactly one of the
// type-specific blocks is set, selected by Type.
type ValueDomain struct {
	URN             string           `json:"urn,omitempty"`
	Type            string           `json:"type"`
	Text            *TextDomain      `json:"text,omitempty"`
	Numeric         *NumericDomain   `json:"numeric,omitempty"`
	Datetime        *DatetimeDomain  `json:"datetime,omitempty"`
	PermittedValues []PermittedValue `json:"permittedValues,omitempty"`
}

// TextDomain describes a STRING value domain.
type TextDomain struct {
	UseRegEx         bool   `json:"useRegEx"`
	RegEx            string `json:"regEx"`
	UseMaximumLength bool   `json:"useMaximumLength"`
	MaximumLength    int    `json:"maximumLength"`
}

// NumericDomain describes a NUMERIC value domain.
type NumericDomain struct {
	Type          string   `json:"type"`
	UseMinimum    bool     `json:"useMinimum"`
	UseMaximum    bool     `json:"useMaximum"`
	UnitOfMeasure string   `json:"unitOfMeasure"`
	Minimum       *float64 `json:"minimum"`
	Maximum       *float64 `json:"maximum"`
}

// DatetimeDomain describes a DATE or DATETIME value domain.
type DatetimeDomain struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	HourFormat string `json:"hourFormat"`
}

// PermittedValue is one value of an ENUMERATED value domain.
type PermittedValue struct {
	Definitions []Definition `json:"definitions"`
	Value       string       `json:"value"`
}
