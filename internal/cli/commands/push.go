package commands

import (
	"fmt"

	"github.com/leapstack-labs/mdrsync/internal/cli/output"
	"github.com/leapstack-labs/mdrsync/internal/engine"
	"github.com/leapstack-labs/mdrsync/internal/reconcile"
	"github.com/leapstack-labs/mdrsync/internal/sqlmap"
	"github.com/leapstack-labs/mdrsync/internal/table"
	"github.com/spf13/cobra"
)

// PushOutput is the JSON form of a push.
type PushOutput struct {
	RunID            string              `json:"run_id,omitempty"`
	Namespace        string              `json:"namespace"`
	URN              string              `json:"namespace_urn"`
	NamespaceCreated bool                `json:"namespace_created"`
	Reconcile        reconcile.Stats     `json:"reconcile"`
	Created          int                 `json:"created"`
	Updated          int                 `json:"updated"`
	Skipped          int                 `json:"skipped"`
	Fallbacks        int                 `json:"fallbacks"`
	Actions          []engine.PushAction `json:"actions"`
	Issues           []IssueOutput       `json:"issues,omitempty"`
}

// NewPushCommand creates the push command.
func NewPushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload the flat table to a namespace",
		Long: `Upload the main-system rows of the flat table to the configured namespace.

Rows whose designation matches an existing data element update it, keeping
its other slots and its value domain. The remaining rows become new data
elements. The namespace is created when it does not exist and
mdr.namespace_definition is set.

SQL statements are read from SQL_<system>.JSON files in sql_dir.`,
		Example: `  # Push the configured table
  mdrsync push

  # Push a semicolon separated table with SQL statements
  mdrsync push --table export.csv --separator ";" --sql-dir sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPush(cmd)
		},
	}
	return cmd
}

func runPush(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := cmdCtx.Cfg

	// Local inputs are read before anything talks to the MDR.
	tbl, err := table.ReadFile(cfg.Table.Path, cfg.Table.Separator)
	if err != nil {
		return err
	}
	var sqls sqlmap.Map
	if cfg.SQLDir != "" {
		if sqls, err = sqlmap.Load(cfg.SQLDir); err != nil {
			return err
		}
		cmdCtx.Logger.Debug("loaded sql statements", "dir", cfg.SQLDir, "systems", len(sqls))
	}

	eng, cleanup, err := cmdCtx.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.Push(ctx, engine.PushOptions{Table: tbl, SQL: sqls})
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	out := PushOutput{
		RunID:            res.RunID,
		Namespace:        cfg.MDR.Namespace,
		URN:              res.Namespace.Identification.URN,
		NamespaceCreated: res.NamespaceCreated,
		Reconcile:        res.Reconcile,
		Created:          res.Created,
		Updated:          res.Updated,
		Skipped:          res.Skipped,
		Fallbacks:        res.Fallbacks,
		Actions:          res.Actions,
		Issues:           issueOutputs(res.Issues),
	}
	cmdCtx.Logger.Info("push completed", "created", out.Created, "updated", out.Updated, "skipped", out.Skipped)
	return renderPush(cmdCtx.Renderer, out)
}

func renderPush(r *output.Renderer, out PushOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Push "+out.Namespace)
	r.KeyValue("Namespace", out.URN)
	if out.NamespaceCreated {
		r.KeyValue("Namespace created", "yes")
	}
	r.KeyValue("Existing elements", out.Reconcile.Candidates)
	r.KeyValue("Matched", out.Reconcile.Matched)
	if out.RunID != "" {
		r.KeyValue("Run", out.RunID)
	}

	if len(out.Actions) > 0 {
		rows := make([][]string, 0, len(out.Actions))
		for _, a := range out.Actions {
			fallback := ""
			if a.Fallback {
				fallback = "yes"
			}
			rows = append(rows, []string{a.Designation, a.VariableName, string(a.Kind), a.URN, fallback})
		}
		r.Println()
		r.Table([]string{"Designation", "Variable", "Action", "URN", "Fallback"}, rows)
	}

	printIssues(r, out.Issues)
	r.Success(fmt.Sprintf("%d created, %d updated, %d skipped", out.Created, out.Updated, out.Skipped))
	return nil
}
