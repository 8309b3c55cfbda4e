// Package reconcile decides which local main-system rows correspond to
// existing remote data elements.
package reconcile

import (
	"log/slog"
	"slices"
)

// Candidate is a remote data element considered for matching.
type Candidate struct {
	URN            string
	Designations   []string
	ValueDomainURN string
	// Keys are the element's external mapping keys (fhir-path slot values).
	Keys []string
}

// KeyFilter admits candidates by external mapping key. A filter without
// allowed keys admits everything.
type KeyFilter struct {
	Allowed []string
}

// Active reports whether the filter restricts anything.
func (f KeyFilter) Active() bool {
	return len(f.Allowed) > 0
}

// Admit returns the candidate's key and whether it passes the filter. When
// the filter is active, exactly one key from the allowed set is required.
func (f KeyFilter) Admit(keys []string) (string, bool) {
	if !f.Active() {
		if len(keys) == 1 {
			return keys[0], true
		}
		return "", true
	}
	if len(keys) != 1 {
		return "", false
	}
	if !slices.Contains(f.Allowed, keys[0]) {
		return "", false
	}
	return keys[0], true
}

// Match is a local designation resolved to a remote element.
type Match struct {
	Designation    string
	URN            string
	ValueDomainURN string
}

// Stats summarizes a reconciliation.
type Stats struct {
	Candidates int `json:"candidates"`
	Excluded   int `json:"excluded"`
	Matched    int `json:"matched"`
	Aliased    int `json:"aliased"`
	Unmatched  int `json:"unmatched"`
}

// Result maps local designations to remote elements. Designations absent
// from Matches need to be created.
type Result struct {
	Matches map[string]Match
	Stats   Stats
}

// Lookup returns the match for a designation.
func (r *Result) Lookup(designation string) (Match, bool) {
	m, ok := r.Matches[designation]
	return m, ok
}

// Reconcile walks candidates in order. For each candidate the first of its
// designations present locally and not yet claimed is recorded and the rest
// are ignored. A designation claimed by an earlier candidate keeps that
// mapping and the walk moves on to the candidate's next designation.
func Reconcile(candidates []Candidate, local []string, filter KeyFilter, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wanted := make(map[string]bool, len(local))
	for _, d := range local {
		wanted[d] = true
	}

	res := &Result{Matches: make(map[string]Match)}
	res.Stats.Candidates = len(candidates)

	for _, c := range candidates {
		if _, ok := filter.Admit(c.Keys); !ok {
			res.Stats.Excluded++
			logger.Debug("candidate excluded by key filter", "urn", c.URN, "keys", c.Keys)
			continue
		}

		for _, d := range c.Designations {
			if !wanted[d] {
				continue
			}
			if prev, taken := res.Matches[d]; taken {
				res.Stats.Aliased++
				logger.Warn("designation already matched; keeping first element",
					"designation", d, "kept_urn", prev.URN, "ignored_urn", c.URN)
				continue
			}
			res.Matches[d] = Match{Designation: d, URN: c.URN, ValueDomainURN: c.ValueDomainURN}
			res.Stats.Matched++
			break
		}
	}

	for d := range wanted {
		if _, ok := res.Matches[d]; !ok {
			res.Stats.Unmatched++
		}
	}
	return res
}
