package commands

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/mdrsync/internal/cli/output"
	"github.com/leapstack-labs/mdrsync/internal/sqlmap"
	"github.com/leapstack-labs/mdrsync/internal/table"
	"github.com/spf13/cobra"
)

// PullOutput is the JSON form of a pull.
type PullOutput struct {
	RunID     string        `json:"run_id,omitempty"`
	Namespace string        `json:"namespace"`
	URN       string        `json:"namespace_urn"`
	Elements  int           `json:"elements"`
	Excluded  int           `json:"excluded"`
	Rows      int           `json:"rows"`
	TablePath string        `json:"table_path"`
	SQLFiles  []string      `json:"sql_files,omitempty"`
	Issues    []IssueOutput `json:"issues,omitempty"`
}

// NewPullCommand creates the pull command.
func NewPullCommand() *cobra.Command {
	var sqlOut string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download a namespace into the flat table",
		Long: `Download every released data element of the configured namespace and
write one row per element and source system to the flat table.

Elements whose value domain cannot be decoded or whose dqa slot is broken
are still written, with fallback values, and reported as warnings.`,
		Example: `  # Pull into the configured table
  mdrsync pull

  # Pull only elements mapped to these FHIR paths
  mdrsync pull --fhir-path Patient.gender --fhir-path Patient.birthDate

  # Also export the SQL statements found in the slots
  mdrsync pull --sql-out sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPull(cmd, sqlOut)
		},
	}

	cmd.Flags().StringVar(&sqlOut, "sql-out", "", "Directory to write SQL_<system>.JSON files to")
	return cmd
}

func runPull(cmd *cobra.Command, sqlOut string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	eng, cleanup, err := cmdCtx.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := eng.Pull(ctx)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	cfg := cmdCtx.Cfg
	if err := table.WriteFile(cfg.Table.Path, res.Table, cfg.Table.Separator); err != nil {
		return err
	}

	out := PullOutput{
		RunID:     res.RunID,
		Namespace: cfg.MDR.Namespace,
		URN:       res.Namespace.Identification.URN,
		Elements:  res.Elements,
		Excluded:  res.Excluded,
		Rows:      res.Table.Len(),
		TablePath: cfg.Table.Path,
		Issues:    issueOutputs(res.Issues),
	}

	if sqlOut != "" && res.SQL.Len() > 0 {
		if err := sqlmap.Write(sqlOut, res.SQL); err != nil {
			return err
		}
		for _, system := range res.SQL.Systems() {
			out.SQLFiles = append(out.SQLFiles, filepath.Join(sqlOut, sqlmap.FileName(system)))
		}
	}

	cmdCtx.Logger.Info("pull completed", "elements", res.Elements, "rows", out.Rows, "issues", len(res.Issues))
	return renderPull(cmdCtx.Renderer, out)
}

func renderPull(r *output.Renderer, out PullOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Pull "+out.Namespace)
	r.KeyValue("Namespace", out.URN)
	r.KeyValue("Elements", out.Elements)
	if out.Excluded > 0 {
		r.KeyValue("Excluded", out.Excluded)
	}
	r.KeyValue("Rows", out.Rows)
	r.KeyValue("Table", out.TablePath)
	for _, f := range out.SQLFiles {
		r.KeyValue("SQL", f)
	}
	if out.RunID != "" {
		r.KeyValue("Run", out.RunID)
	}
	printIssues(r, out.Issues)
	r.Success(fmt.Sprintf("wrote %d rows", out.Rows))
	return nil
}
