package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/mdrsync/internal/cli/commands"
	"github.com/leapstack-labs/mdrsync/internal/cli/config"
	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/mdr/mdrtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", want: ExitOK},
		{name: "configuration", err: fmt.Errorf("wrapped: %w", mdr.NewConfigurationError("bad")), want: ExitConfiguration},
		{name: "remote", err: &mdr.RemoteFetchError{Method: "GET", URL: "x", StatusCode: 500}, want: ExitFailure},
		{name: "other", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"pull", "push", "runs", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "base-url", "namespace", "table", "separator", "fhir-path", "state", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mdrsync v"+Version)
}

func TestRootCommand_Completion(t *testing.T) {
	out, _, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "mdrsync")

	_, _, err = runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRootCommand_InvalidFlagValue(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := runRoot(t, "runs", "--separator", "|")
	require.Error(t, err)
	assert.Equal(t, ExitConfiguration, ExitCode(err))
}

func TestRootCommand_PullWithFlags(t *testing.T) {
	srv := mdrtest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddNamespace(mdr.RoleRead, "demo", "urn:demo:namespace:1", "demo", mdr.StatusReleased)
	srv.AddElement("demo", &mdr.DataElement{
		Identification: mdr.Identification{
			ElementType: mdr.ElementTypeDataElement,
			URN:         "urn:demo:dataelement:1:1",
			Status:      mdr.StatusReleased,
		},
		Definitions: []mdr.Definition{{Designation: "Height", Definition: "Body height", Language: mdr.LanguageEnglish}},
	}, &mdr.ValueDomain{Type: "STRING", Text: &mdr.TextDomain{MaximumLength: 10, UseMaximumLength: true}})

	dir := t.TempDir()
	t.Chdir(dir)

	out, stderr, err := runRoot(t, "pull",
		"--base-url", srv.BaseURL(),
		"--namespace", "demo",
		"--bypass-auth",
		"--table", "out/pulled.csv",
		"--separator", ";",
		"--state", "ledger.db",
		"--log-format", "json",
		"-o", "json",
	)
	require.NoError(t, err, stderr)

	var got commands.PullOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Rows)
	assert.True(t, filepath.IsAbs(got.TablePath))
	assert.FileExists(t, got.TablePath)
	assert.Contains(t, stderr, `"msg":"pull completed"`)

	out, _, err = runRoot(t, "runs", "--state", "ledger.db", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, got.RunID)
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(t.Context())
	assert.Equal(t, config.DefaultTableFile, cfg.Table.Path)
	assert.Equal(t, config.DefaultStateFile, cfg.StatePath)
}
