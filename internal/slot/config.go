// Package slot converts between the nested "dqa" slot configuration stored on
// MDR data elements and the flat per-system rows of the local table.
package slot

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultAssessment is written when a row leaves dqa_assessment empty.
const DefaultAssessment = 1

// maxExactFloatInt bounds floats that convert to int64 without loss.
const maxExactFloatInt = 1 << 53

// Systems maps system_name to its entry, in insertion order.
type Systems = orderedmap.OrderedMap[string, SystemEntry]

// SystemTypes maps system_type to its systems, in insertion order.
type SystemTypes = orderedmap.OrderedMap[string, *Systems]

// Config is the value of a "dqa" slot.
type Config struct {
	VariableName     Text         `json:"variable_name"`
	Key              Text         `json:"key"`
	AvailableSystems *SystemTypes `json:"available_systems"`
}

// SystemEntry is the configuration of one variable in one source system.
type SystemEntry struct {
	DQAAssessment         Assessment `json:"dqa_assessment"`
	DataMap               Text       `json:"data_map"`
	Filter                Text       `json:"filter"`
	SourceVariableName    Text       `json:"source_variable_name"`
	SourceTableName       Text       `json:"source_table_name"`
	Constraints           Text       `json:"constraints"`
	PlausibilityRelation  Text       `json:"plausibility_relation"`
	RestrictingDateVar    Text       `json:"restricting_date_var"`
	RestrictingDateFormat Text       `json:"restricting_date_format"`
	SQLStatement          Text       `json:"sql_statement,omitempty"`
}

// NewConfig returns an empty configuration.
func NewConfig(variableName, key string) *Config {
	return &Config{
		VariableName:     Text(variableName),
		Key:              Text(key),
		AvailableSystems: orderedmap.New[string, *Systems](),
	}
}

// Parse decodes a "dqa" slot value. Slots written before variable_name and
// key were introduced decode with those fields empty.
func Parse(value string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return nil, err
	}
	if cfg.AvailableSystems == nil {
		cfg.AvailableSystems = orderedmap.New[string, *Systems]()
	}
	return &cfg, nil
}

// Encode renders the configuration as the slot's JSON string.
func (c *Config) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Put stores an entry, creating the system type group on first use. It
// reports false when (systemType, systemName) already exists.
func (c *Config) Put(systemType, systemName string, entry SystemEntry) bool {
	systems, ok := c.AvailableSystems.Get(systemType)
	if !ok || systems == nil {
		systems = orderedmap.New[string, SystemEntry]()
		c.AvailableSystems.Set(systemType, systems)
	}
	if _, exists := systems.Get(systemName); exists {
		return false
	}
	systems.Set(systemName, entry)
	return true
}

// Each visits every (system type, system name, entry) in insertion order.
func (c *Config) Each(fn func(systemType, systemName string, entry SystemEntry)) {
	if c.AvailableSystems == nil {
		return
	}
	for t := c.AvailableSystems.Oldest(); t != nil; t = t.Next() {
		if t.Value == nil {
			continue
		}
		for s := t.Value.Oldest(); s != nil; s = s.Next() {
			fn(t.Key, s.Key, s.Value)
		}
	}
}

// Len returns the number of system entries.
func (c *Config) Len() int {
	n := 0
	c.Each(func(string, string, SystemEntry) { n++ })
	return n
}

// SQLStatements returns system_name -> sql_statement for entries carrying one.
func (c *Config) SQLStatements() map[string]string {
	out := make(map[string]string)
	c.Each(func(_, systemName string, entry SystemEntry) {
		if entry.SQLStatement != "" {
			out[systemName] = string(entry.SQLStatement)
		}
	})
	return out
}

// Text is a string field that tolerates non-string JSON. Numbers, booleans,
// objects and arrays are kept as their compact JSON text; null is empty.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*t = Text(buf.String())
	return nil
}

// Assessment is the dqa_assessment flag. It is carried as text and written
// back as a JSON integer whenever it parses as one.
type Assessment string

func (a *Assessment) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = Assessment(t)
	return nil
}

func (a Assessment) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return []byte(strconv.Itoa(DefaultAssessment)), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return []byte(strconv.Itoa(n)), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && math.Abs(f) < maxExactFloatInt && f == math.Trunc(f) {
		return []byte(strconv.FormatInt(int64(f), 10)), nil
	}
	return json.Marshal(s)
}
