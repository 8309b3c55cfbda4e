package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/reconcile"
	"github.com/leapstack-labs/mdrsync/internal/slot"
	"github.com/leapstack-labs/mdrsync/internal/sqlmap"
	"github.com/leapstack-labs/mdrsync/internal/state"
	"github.com/leapstack-labs/mdrsync/internal/table"
	"github.com/leapstack-labs/mdrsync/internal/valuedomain"
)

// PushOptions holds the local inputs of a push.
type PushOptions struct {
	Table *table.Table
	// SQL supplies sql_statement fragments (optional).
	SQL sqlmap.Map
}

// PushAction is what push did with one main-system row.
type PushAction struct {
	Designation  string           `json:"designation"`
	VariableName string           `json:"variable_name"`
	Kind         state.ActionKind `json:"action"`
	URN          string           `json:"urn,omitempty"`
	Fallback     bool             `json:"fallback,omitempty"`
}

// PushResult is the outcome of a push.
type PushResult struct {
	RunID            string
	Namespace        mdr.Namespace
	NamespaceCreated bool
	Reconcile        reconcile.Stats
	Actions          []PushAction
	Issues           []Issue
	Created          int
	Updated          int
	Skipped          int
	Fallbacks        int
}

// Push writes every main-system row of the table to the namespace. Rows
// whose designation matches an existing element update it; the rest are
// created. The table is validated before any remote call.
func (e *Engine) Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	if opts.Table == nil {
		return nil, mdr.NewConfigurationError("no table to push")
	}
	mainRows, err := opts.Table.MainRows(e.mainSystem)
	if err != nil {
		return nil, err
	}

	run := e.beginRun(ctx, state.DirectionPush)
	res, err := e.push(ctx, run, opts, mainRows)
	return res, run.finish(ctx, err)
}

func (e *Engine) push(ctx context.Context, run *runRecorder, opts PushOptions, mainRows []table.FlatRow) (*PushResult, error) {
	ns, created, err := e.ensureNamespace(ctx)
	if err != nil {
		return nil, err
	}
	res := &PushResult{RunID: run.runID, Namespace: ns, NamespaceCreated: created}

	// A freshly created namespace has no members.
	existing := map[string]*mdr.DataElement{}
	matches := &reconcile.Result{Matches: map[string]reconcile.Match{}}
	if !created {
		candidates, elements, err := e.candidates(ctx, ns)
		if err != nil {
			return nil, err
		}
		existing = elements
		matches = reconcile.Reconcile(candidates, table.Designations(mainRows), e.filter, e.logger)
		res.Reconcile = matches.Stats
	}
	e.logger.Info("pushing rows", "rows", len(mainRows), "matched", len(matches.Matches), "main_system", e.mainSystem.String())

	for _, row := range mainRows {
		action, issue, err := e.pushRow(ctx, ns, row, opts, matches, existing)
		if err != nil {
			return nil, err
		}
		detail := ""
		if issue != nil {
			res.Issues = append(res.Issues, *issue)
			detail = issue.Message()
		}
		res.Actions = append(res.Actions, action)
		switch action.Kind {
		case state.ActionCreated:
			res.Created++
		case state.ActionUpdated:
			res.Updated++
		case state.ActionSkipped:
			res.Skipped++
		}
		if action.Fallback {
			res.Fallbacks++
		}

		run.record(ctx, state.Action{
			Designation:  action.Designation,
			VariableName: action.VariableName,
			Kind:         action.Kind,
			URN:          action.URN,
			Fallback:     action.Fallback,
			Detail:       detail,
		})
	}

	e.logger.Info("push finished",
		"created", res.Created, "updated", res.Updated, "skipped", res.Skipped, "fallbacks", res.Fallbacks)
	return res, nil
}

// candidates fetches the released elements of ns for reconciliation and
// returns them keyed by URN for reuse when updating.
func (e *Engine) candidates(ctx context.Context, ns mdr.Namespace) ([]reconcile.Candidate, map[string]*mdr.DataElement, error) {
	urns, err := e.memberURNs(ctx, ns)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]reconcile.Candidate, 0, len(urns))
	elements := make(map[string]*mdr.DataElement, len(urns))
	for _, urn := range urns {
		element, err := e.remote.Element(ctx, urn)
		if err != nil {
			return nil, nil, err
		}
		elements[urn] = element
		candidates = append(candidates, reconcile.Candidate{
			URN:            urn,
			Designations:   element.Designations(),
			ValueDomainURN: element.ValueDomainURN,
			Keys:           element.SlotValues(mdr.SlotFHIRPath),
		})
	}
	return candidates, elements, nil
}

func (e *Engine) pushRow(
	ctx context.Context,
	ns mdr.Namespace,
	row table.FlatRow,
	opts PushOptions,
	matches *reconcile.Result,
	existing map[string]*mdr.DataElement,
) (PushAction, *Issue, error) {
	action := PushAction{Designation: row.Designation, VariableName: row.VariableName}
	log := e.logger.With("designation", row.Designation, "variable_name", row.VariableName)

	dqa, err := e.dqaSlot(row, opts)
	if err != nil {
		log.Error("skipping row", "error", err)
		action.Kind = state.ActionSkipped
		return action, &Issue{Designation: row.Designation, Stage: StageCollapse, Err: err}, nil
	}

	element := &mdr.DataElement{
		Identification: mdr.Identification{
			ElementType:  mdr.ElementTypeDataElement,
			NamespaceURN: ns.Identification.URN,
			Status:       mdr.StatusReleased,
		},
		Definitions: []mdr.Definition{{
			Designation: row.Designation,
			Definition:  row.Definition,
			Language:    mdr.LanguageEnglish,
		}},
		Slots:               []mdr.Slot{dqa},
		ConceptAssociations: []any{},
	}

	if m, ok := matches.Lookup(row.Designation); ok {
		element.ValueDomainURN = m.ValueDomainURN
		if prev := existing[m.URN]; prev != nil {
			element.Slots = append(element.Slots, prev.SlotsExcept(mdr.SlotDQA)...)
		}
		if err := e.remote.UpdateElement(ctx, m.URN, element); err != nil {
			return action, nil, err
		}
		log.Info("updated data element", "urn", m.URN)
		action.Kind = state.ActionUpdated
		action.URN = m.URN
		return action, nil, nil
	}

	var issue *Issue
	vd, err := valuedomain.Encode(row.VariableType, row.Constraints)
	if err != nil {
		log.Error("value domain not encodable; using string fallback", "error", err)
		issue = &Issue{Designation: row.Designation, Stage: StageEncode, Err: err}
		vd = valuedomain.Fallback()
		action.Fallback = true
	}
	element.ValueDomain = vd

	if err := e.remote.CreateElement(ctx, element); err != nil {
		return action, nil, err
	}
	log.Info("created data element", "type", vd.Type)
	action.Kind = state.ActionCreated
	return action, issue, nil
}

// dqaSlot collapses every row of the row's variable into the "dqa" slot.
func (e *Engine) dqaSlot(row table.FlatRow, opts PushOptions) (mdr.Slot, error) {
	cfg, err := slot.Collapse(opts.Table.RowsForVariable(row.VariableName), opts.SQL)
	if err != nil {
		return mdr.Slot{}, err
	}
	value, err := cfg.Encode()
	if err != nil {
		return mdr.Slot{}, fmt.Errorf("failed to encode dqa slot: %w", err)
	}
	return mdr.Slot{Name: mdr.SlotDQA, Value: value}, nil
}
