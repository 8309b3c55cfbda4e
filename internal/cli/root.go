// Package cli provides the command-line interface for mdrsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/mdrsync/internal/cli/commands"
	"github.com/leapstack-labs/mdrsync/internal/cli/config"
	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mdrsync",
		Short: "mdrsync - sync data element definitions with an MDR",
		Long: `mdrsync synchronizes data-quality variable definitions between a flat
CSV table and a metadata repository (MDR).

pull downloads a namespace's data elements into the table; push uploads the
table's main-system rows, updating matching elements and creating the rest.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := cfg.NewLogger(cmd.ErrOrStderr())
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: mdrsync.yaml, searched upward)")
	pf.String("base-url", "", "MDR API base URL")
	pf.String("namespace", "", "Namespace designation to sync")
	pf.String("namespace-definition", "", "Definition used when push creates the namespace")
	pf.Duration("timeout", 0, "Timeout of each MDR request")
	pf.Bool("bypass-auth", false, "Do not authenticate against the MDR")
	pf.String("token-url", "", "OAuth2 token endpoint")
	pf.String("username", "", "MDR username (prompted when empty)")
	pf.String("table", "", "Path to the flat table")
	pf.String("separator", "", `Table separator ("," or ";")`)
	pf.String("sql-dir", "", "Directory with SQL_<system>.JSON files")
	pf.String("main-system-name", "", "Name of the main source system")
	pf.String("main-system-type", "", "Type of the main source system")
	pf.StringSlice("fhir-path", nil, "Only sync elements mapped to these FHIR paths (repeatable)")
	pf.String("state", "", "Path to the run ledger database")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("separator", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{",", ";"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}))
	rootCmd.AddCommand(commands.NewPullCommand())
	rootCmd.AddCommand(commands.NewPushCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps an error to a process exit code. Configuration errors are
// distinguished from failed syncs.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *mdr.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitConfiguration
	}
	return ExitFailure
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		Table:      config.TableConfig{Path: config.DefaultTableFile, Separator: config.DefaultSeparator},
		MainSystem: config.MainSystemConfig{Name: config.DefaultMainSystemName, Type: config.DefaultMainSystemType},
		StatePath:  config.DefaultStateFile,
		LogLevel:   config.DefaultLogLevel,
		LogFormat:  config.DefaultLogFormat,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mdrsync.

To load completions:

Bash:
  $ source <(mdrsync completion bash)

Zsh:
  $ mdrsync completion zsh > "${fpath[1]}/_mdrsync"

Fish:
  $ mdrsync completion fish | source

PowerShell:
  PS> mdrsync completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
