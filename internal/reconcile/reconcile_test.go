package reconcile

import (
	"testing"

	"github.com/leapstack-labs/mdrsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func urns(r *Result) map[string]string {
	out := make(map[string]string, len(r.Matches))
	for d, m := range r.Matches {
		out[d] = m.URN
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		local      []string
		filter     KeyFilter
		want       map[string]string
		wantStats  Stats
	}{
		{
			name: "first matching designation per element",
			candidates: []Candidate{
				{URN: "urn1", Designations: []string{"A", "B"}},
				{URN: "urn2", Designations: []string{"C"}},
			},
			local:     []string{"B", "C", "D"},
			want:      map[string]string{"B": "urn1", "C": "urn2"},
			wantStats: Stats{Candidates: 2, Matched: 2, Unmatched: 1},
		},
		{
			name: "only first local designation of an element is taken",
			candidates: []Candidate{
				{URN: "urn1", Designations: []string{"A", "B"}},
			},
			local:     []string{"A", "B"},
			want:      map[string]string{"A": "urn1"},
			wantStats: Stats{Candidates: 1, Matched: 1, Unmatched: 1},
		},
		{
			name: "earlier element keeps an aliased designation",
			candidates: []Candidate{
				{URN: "urn1", Designations: []string{"A"}},
				{URN: "urn2", Designations: []string{"A"}},
			},
			local:     []string{"A"},
			want:      map[string]string{"A": "urn1"},
			wantStats: Stats{Candidates: 2, Matched: 1, Aliased: 1},
		},
		{
			name: "aliased designation falls through to the next one",
			candidates: []Candidate{
				{URN: "urn1", Designations: []string{"A", "B"}},
				{URN: "urn2", Designations: []string{"A", "C"}},
			},
			local:     []string{"A", "C"},
			want:      map[string]string{"A": "urn1", "C": "urn2"},
			wantStats: Stats{Candidates: 2, Matched: 2, Aliased: 1},
		},
		{
			name:      "nothing remote",
			local:     []string{"A"},
			want:      map[string]string{},
			wantStats: Stats{Unmatched: 1},
		},
		{
			name: "key filter excludes untagged and foreign keys",
			candidates: []Candidate{
				{URN: "urn1", Designations: []string{"A"}, Keys: []string{"Patient.age"}},
				{URN: "urn2", Designations: []string{"B"}},
				{URN: "urn3", Designations: []string{"C"}, Keys: []string{"Observation.code"}},
				{URN: "urn4", Designations: []string{"D"}, Keys: []string{"Patient.age", "Patient.gender"}},
			},
			local:     []string{"A", "B", "C", "D"},
			filter:    KeyFilter{Allowed: []string{"Patient.age", "Patient.gender"}},
			want:      map[string]string{"A": "urn1"},
			wantStats: Stats{Candidates: 4, Excluded: 3, Matched: 1, Unmatched: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.candidates, tt.local, tt.filter, testutil.NewTestLogger(t))
			assert.Equal(t, tt.want, urns(got))
			assert.Equal(t, tt.wantStats, got.Stats)
		})
	}
}

func TestReconcile_CarriesValueDomainURN(t *testing.T) {
	res := Reconcile([]Candidate{
		{URN: "urn1", Designations: []string{"A"}, ValueDomainURN: "urn:vd:1"},
	}, []string{"A"}, KeyFilter{}, nil)

	m, ok := res.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "urn:vd:1", m.ValueDomainURN)

	_, ok = res.Lookup("B")
	assert.False(t, ok)
}

func TestReconcile_LogsAlias(t *testing.T) {
	logger, capture := testutil.NewCaptureLogger()
	Reconcile([]Candidate{
		{URN: "urn1", Designations: []string{"A"}},
		{URN: "urn2", Designations: []string{"A"}},
	}, []string{"A"}, KeyFilter{}, logger)

	warns := capture.Lines("WARN")
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "ignored_urn=urn2")
}

func TestKeyFilter_Admit(t *testing.T) {
	tests := []struct {
		name    string
		filter  KeyFilter
		keys    []string
		wantKey string
		wantOK  bool
	}{
		{name: "inactive without keys", keys: nil, wantOK: true},
		{name: "inactive single key", keys: []string{"k"}, wantKey: "k", wantOK: true},
		{name: "inactive many keys", keys: []string{"a", "b"}, wantOK: true},
		{name: "active allowed", filter: KeyFilter{Allowed: []string{"k"}}, keys: []string{"k"}, wantKey: "k", wantOK: true},
		{name: "active not allowed", filter: KeyFilter{Allowed: []string{"k"}}, keys: []string{"x"}},
		{name: "active no key", filter: KeyFilter{Allowed: []string{"k"}}},
		{name: "active two keys", filter: KeyFilter{Allowed: []string{"k", "x"}}, keys: []string{"k", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := tt.filter.Admit(tt.keys)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}
