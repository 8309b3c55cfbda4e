// Package commands implements the mdrsync subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/mdrsync/internal/auth"
	"github.com/leapstack-labs/mdrsync/internal/cli/config"
	"github.com/leapstack-labs/mdrsync/internal/cli/output"
	"github.com/leapstack-labs/mdrsync/internal/engine"
	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/state"
	"github.com/leapstack-labs/mdrsync/internal/table"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the loaded config, the logger and a renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// getConfig returns the configuration loaded by the root command, loading
// it from the working directory when a command runs on its own.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// openLedger opens the run ledger, creating its directory.
func openLedger(cfg *config.Config) (*state.SQLiteStore, error) {
	if cfg.StatePath != ":memory:" {
		if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newEngine authenticates against the MDR and wires an engine for the
// configured namespace. The returned cleanup closes the ledger.
func (c *CommandContext) newEngine(ctx context.Context, cmd *cobra.Command) (*engine.Engine, func(), error) {
	cfg := c.Cfg
	if err := cfg.ValidateForSync(); err != nil {
		return nil, nil, err
	}

	var prompter *auth.Prompter
	if in, ok := cmd.InOrStdin().(*os.File); ok {
		prompter = auth.NewPrompter(in, cmd.ErrOrStderr())
	}
	header, err := auth.Resolve(ctx, auth.Options{
		Bypass: cfg.Auth.Bypass,
		Grant: auth.PasswordGrant{
			TokenURL: cfg.Auth.TokenURL,
			ClientID: cfg.Auth.ClientID,
			Scopes:   cfg.Auth.Scopes(),
		},
		Credentials: auth.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		Prompter:    prompter,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	client, err := mdr.NewClient(mdr.Connection{
		BaseURL:   cfg.MDR.BaseURL,
		Namespace: cfg.MDR.Namespace,
		Header:    header,
	}, mdr.ClientOptions{
		Timeout:           cfg.MDR.Timeout,
		RequestsPerSecond: cfg.MDR.RequestsPerSecond,
		Burst:             cfg.MDR.Burst,
		Logger:            c.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	engineCfg := engine.Config{
		Remote:              client,
		Namespace:           cfg.MDR.Namespace,
		NamespaceDefinition: cfg.MDR.NamespaceDefinition,
		MainSystem:          table.MainSystem{Name: cfg.MainSystem.Name, Type: cfg.MainSystem.Type},
		FHIRPaths:           cfg.FHIRPaths,
		Logger:              c.Logger,
	}

	cleanup := func() {}
	ledger, err := openLedger(cfg)
	if err != nil {
		c.Logger.Warn("run ledger unavailable, continuing without it", "path", cfg.StatePath, "error", err)
	} else {
		engineCfg.Ledger = ledger
		cleanup = func() { _ = ledger.Close() }
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

// IssueOutput is the JSON form of a non-fatal issue.
type IssueOutput struct {
	Designation string `json:"designation"`
	URN         string `json:"urn,omitempty"`
	Stage       string `json:"stage"`
	Message     string `json:"message"`
}

func issueOutputs(issues []engine.Issue) []IssueOutput {
	out := make([]IssueOutput, 0, len(issues))
	for _, i := range issues {
		out = append(out, IssueOutput{Designation: i.Designation, URN: i.URN, Stage: i.Stage, Message: i.Message()})
	}
	return out
}

// printIssues reports non-fatal issues on standard error.
func printIssues(r *output.Renderer, issues []IssueOutput) {
	for _, i := range issues {
		r.Warning(fmt.Sprintf("%s [%s]: %s", i.Designation, i.Stage, i.Message))
	}
}
