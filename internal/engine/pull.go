package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/slot"
	"github.com/leapstack-labs/mdrsync/internal/sqlmap"
	"github.com/leapstack-labs/mdrsync/internal/state"
	"github.com/leapstack-labs/mdrsync/internal/table"
	"github.com/leapstack-labs/mdrsync/internal/valuedomain"
)

// PullResult is the outcome of a pull.
type PullResult struct {
	RunID     string
	Namespace mdr.Namespace
	Table     *table.Table
	// SQL holds the sql_statements found in the pulled slots.
	SQL      sqlmap.Map
	Elements int
	Excluded int
	Issues   []Issue
}

// Pull downloads every released data element of the namespace and flattens
// it into rows. Namespace resolution failures and remote errors are fatal;
// undecodable value domains and broken slots are reported as issues.
func (e *Engine) Pull(ctx context.Context) (*PullResult, error) {
	run := e.beginRun(ctx, state.DirectionPull)
	res, err := e.pull(ctx, run)
	return res, run.finish(ctx, err)
}

func (e *Engine) pull(ctx context.Context, run *runRecorder) (*PullResult, error) {
	ns, err := e.resolveNamespace(ctx, mdr.RoleRead)
	if err != nil {
		return nil, err
	}
	e.logger.Info("pulling namespace", "urn", ns.Identification.URN)

	urns, err := e.memberURNs(ctx, ns)
	if err != nil {
		return nil, err
	}

	res := &PullResult{
		RunID:     run.runID,
		Namespace: ns,
		Table:     table.New(),
		SQL:       sqlmap.Map{},
	}

	for _, urn := range urns {
		element, err := e.remote.Element(ctx, urn)
		if err != nil {
			return nil, err
		}

		fhirPath, ok := e.filter.Admit(element.SlotValues(mdr.SlotFHIRPath))
		if !ok {
			res.Excluded++
			e.logger.Debug("element excluded by fhir-path filter", "urn", urn)
			continue
		}

		vd, err := e.remote.ValueDomain(ctx, urn)
		if err != nil {
			return nil, err
		}

		rows := e.flatten(urn, element, vd, fhirPath, res)
		res.Table.Append(rows...)
		res.Elements++

		var variableName string
		if len(rows) > 0 {
			variableName = rows[0].VariableName
		}
		run.record(ctx, state.Action{
			Designation:  element.FirstDefinition().Designation,
			VariableName: variableName,
			Kind:         state.ActionPulled,
			URN:          urn,
			Detail:       fmt.Sprintf("%d rows", len(rows)),
		})
	}

	e.logger.Info("pull finished",
		"elements", res.Elements, "excluded", res.Excluded, "rows", res.Table.Len(), "issues", len(res.Issues))
	return res, nil
}

// flatten merges an element's decoded value domain with its expanded slot.
// An element without usable slot rows yields one base row.
func (e *Engine) flatten(urn string, element *mdr.DataElement, vd *mdr.ValueDomain, fhirPath string, res *PullResult) []table.FlatRow {
	def := element.FirstDefinition()
	log := e.logger.With("urn", urn, "designation", def.Designation)

	variableType, constraints, err := valuedomain.Decode(vd)
	if err != nil {
		log.Warn("value domain not decodable; treating as string", "error", err)
		res.Issues = append(res.Issues, Issue{Designation: def.Designation, URN: urn, Stage: StageDecode, Err: err})
		variableType, constraints = valuedomain.TypeString, ""
	}

	cfg, err := slot.FromElement(element)
	if err != nil {
		log.Warn("dqa slot unusable; emitting base row", "error", err)
		res.Issues = append(res.Issues, Issue{Designation: def.Designation, URN: urn, Stage: StageSlot, Err: err})
		cfg = nil
	}

	rows := slot.Expand(cfg, def.Designation, def.Definition)
	if len(rows) == 0 {
		rows = []table.FlatRow{{Designation: def.Designation, Definition: def.Definition}}
	}

	for i := range rows {
		r := &rows[i]
		r.VariableType = string(variableType)
		if r.Constraints == "" {
			r.Constraints = constraints
		}
		if e.filter.Active() {
			if r.Key == "" {
				r.Key = fhirPath
			}
			if r.VariableName == "" {
				r.VariableName = fhirPath
			}
		}
	}

	slot.CollectSQL(cfg, rows[0].VariableName, res.SQL)
	return rows
}

// memberURNs lists the released data elements of ns.
func (e *Engine) memberURNs(ctx context.Context, ns mdr.Namespace) ([]string, error) {
	id := ns.Identification.Identifier.String()
	members, err := e.remote.Members(ctx, id)
	if err != nil {
		return nil, err
	}

	urns := make([]string, 0, len(members))
	for _, m := range members {
		if m.IsReleasedDataElement(id) {
			urns = append(urns, m.ElementURN)
		}
	}
	e.logger.Debug("namespace members", "total", len(members), "released_elements", len(urns))
	return urns, nil
}
