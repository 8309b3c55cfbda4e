// Package sqlmap loads and writes the per-system SQL fragment files
// (SQL_<system>.JSON) that are attached to slot entries.
package sqlmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
)

const (
	filePrefix = "SQL_"
	fileSuffix = ".JSON"
)

// Map holds system_name -> variable_name -> sql fragment.
type Map map[string]map[string]string

// Lookup returns the fragment for a variable in a system. A nil map has no
// entries.
func (m Map) Lookup(system, variable string) (string, bool) {
	if m == nil {
		return "", false
	}
	byVar, ok := m[system]
	if !ok {
		return "", false
	}
	sql, ok := byVar[variable]
	return sql, ok
}

// Set records a fragment.
func (m Map) Set(system, variable, sql string) {
	byVar, ok := m[system]
	if !ok {
		byVar = make(map[string]string)
		m[system] = byVar
	}
	byVar[variable] = sql
}

// Systems returns the system names in sorted order.
func (m Map) Systems() []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of fragments across all systems.
func (m Map) Len() int {
	n := 0
	for _, byVar := range m {
		n += len(byVar)
	}
	return n
}

// FileName returns the file name used for a system.
func FileName(system string) string {
	return filePrefix + system + fileSuffix
}

// Load reads every SQL_<system>.JSON file in dir. Files whose system name
// contains "legacy" are skipped.
func Load(dir string) (Map, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mdr.NewConfigurationErrorf("sql directory does not exist: %s", dir)
		}
		return nil, fmt.Errorf("failed to access sql directory: %w", err)
	}
	if !info.IsDir() {
		return nil, mdr.NewConfigurationErrorf("sql path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to scan sql directory: %w", err)
	}

	m := make(Map)
	for _, file := range files {
		system := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), filePrefix), fileSuffix)
		if system == "" || strings.Contains(system, "legacy") {
			continue
		}

		data, err := os.ReadFile(file) //nolint:gosec // G304: path comes from Glob within the sql directory
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		var byVar map[string]string
		if err := json.Unmarshal(data, &byVar); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if byVar == nil {
			byVar = make(map[string]string)
		}
		m[system] = byVar
	}
	return m, nil
}

// Write stores one SQL_<system>.JSON file per system in dir.
func Write(dir string, m Map) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create sql directory: %w", err)
	}
	for _, system := range m.Systems() {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m[system]); err != nil {
			return fmt.Errorf("failed to encode sql for %s: %w", system, err)
		}
		path := filepath.Join(dir, FileName(system))
		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
