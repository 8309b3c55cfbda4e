package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/mdrsync/internal/cli/output"
	"github.com/leapstack-labs/mdrsync/internal/state"
	"github.com/spf13/cobra"
)

// DefaultRunsLimit is how many runs `runs` lists by default.
const DefaultRunsLimit = 20

// RunDetailOutput is the JSON form of `runs show`.
type RunDetailOutput struct {
	Run     *state.Run      `json:"run"`
	Actions []*state.Action `json:"actions"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pull and push runs",
		Long: `List the most recent pull and push runs recorded in the local run ledger
(state_path), newest first.`,
		Example: `  # Show the last 20 runs
  mdrsync runs

  # Show every recorded run as JSON
  mdrsync runs --limit 0 -o json

  # Show what one run did
  mdrsync runs show 5f0c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunsList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultRunsLimit, "Maximum number of runs to list (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the actions of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0])
		},
	})
	return cmd
}

func runRunsList(cmd *cobra.Command, limit int) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, err := openLedger(cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}

	r.Header(1, fmt.Sprintf("Runs (%d)", len(runs)))
	if len(runs) == 0 {
		r.Muted("No runs recorded in " + cmdCtx.Cfg.StatePath)
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			string(run.Direction),
			run.Namespace,
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			formatDuration(run),
		})
	}
	r.Table([]string{"ID", "Direction", "Namespace", "Status", "Started", "Duration"}, rows)
	return nil
}

func runRunsShow(cmd *cobra.Command, id string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, err := openLedger(cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}
	actions, err := store.ListActions(ctx, id)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if actions == nil {
			actions = []*state.Action{}
		}
		return r.JSON(RunDetailOutput{Run: run, Actions: actions})
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Direction", run.Direction)
	r.KeyValue("Namespace", run.Namespace)
	r.KeyValue("Status", run.Status)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	r.KeyValue("Duration", formatDuration(run))
	if run.Error != "" {
		r.KeyValue("Error", run.Error)
	}

	if len(actions) == 0 {
		r.Muted("No actions recorded")
		return nil
	}
	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		detail := a.Detail
		if a.Fallback {
			detail = joinNonEmpty("fallback value domain", detail)
		}
		rows = append(rows, []string{a.Designation, a.VariableName, string(a.Kind), a.URN, detail})
	}
	r.Println()
	r.Table([]string{"Designation", "Variable", "Action", "URN", "Detail"}, rows)
	return nil
}

func formatDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "; " + b
}
