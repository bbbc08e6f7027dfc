package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/config"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/logging"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/server"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "abc123", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type report struct {
	InvocationID string `json:"invocation_id"`
	Result       struct {
		Success bool `json:"success"`
		Error   *struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		} `json:"error"`
		Value any `json:"value"`
	} `json:"result"`
	Progress struct {
		Logs []struct {
			Message string `json:"message"`
		} `json:"logs"`
	} `json:"progress"`
}

func parse(t *testing.T, out string) report {
	t.Helper()
	var r report
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

const metadataYAML = `connection_id: conn-1
provider_config_key: github
secret_key: sk-test
sync_name: issues
`

func TestRunWithMetadataFile(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "issues.ts", `
		export default async function (nango: any) {
			await nango.log('syncing', nango.syncName);
			return { connection: nango.connectionId };
		}
	`)
	meta := writeFile(t, dir, "connection.yaml", metadataYAML)

	out, err := execute(t, "run", script, "--metadata", meta)
	require.NoError(t, err)

	r := parse(t, out)
	assert.NotEmpty(t, r.InvocationID)
	assert.True(t, r.Result.Success)
	assert.Equal(t, map[string]any{"connection": "conn-1"}, r.Result.Value)
	require.Len(t, r.Progress.Logs, 1)
	assert.Equal(t, "syncing issues", r.Progress.Logs[0].Message)
}

func TestRunActionWithFlags(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "create-issue.js", `
		module.exports = async function (nango, input) {
			return { action: nango.actionName, title: input.title };
		};
	`)
	meta := writeFile(t, dir, "connection.yaml", metadataYAML)

	out, err := execute(t, "run", script,
		"--metadata", meta,
		"--action-name", "create-issue",
		"--input", `{"title":"Bug"}`,
	)
	require.NoError(t, err)

	r := parse(t, out)
	require.True(t, r.Result.Success)
	assert.Equal(t, map[string]any{"action": "create-issue", "title": "Bug"}, r.Result.Value)
}

func TestRunFailureExitsWithError(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "broken.ts", `
		export default async function () {
			throw new Error('foobar');
		}
	`)

	out, err := execute(t, "run", script,
		"--connection-id", "conn-1",
		"--provider-config-key", "github",
		"--secret-key", "sk-test",
		"--sync-name", "broken",
	)
	require.ErrorIs(t, err, ErrInvocationFailed)

	r := parse(t, out)
	assert.False(t, r.Result.Success)
	require.NotNil(t, r.Result.Error)
	assert.Equal(t, "script_internal_error", r.Result.Error.Type)
	assert.Equal(t, map[string]any{"message": "foobar", "name": "Error"}, r.Result.Error.Payload)
}

func TestRunTimeoutFlag(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "slow.ts", `
		export default async function () {
			await new Promise((r) => setTimeout(r, 60000));
		}
	`)
	meta := writeFile(t, dir, "connection.yaml", metadataYAML)

	out, err := execute(t, "run", script, "--metadata", meta, "--timeout", "50ms")
	require.ErrorIs(t, err, ErrInvocationFailed)

	r := parse(t, out)
	assert.Equal(t, "Timeout", r.Result.Error.Payload["name"])
}

func TestRunInvalidInvocation(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "s.ts", `export default async function () {}`)

	tests := []struct {
		name string
		args []string
	}{
		{"missing script", []string{"run", filepath.Join(dir, "missing.ts"), "--metadata", writeFile(t, dir, "m.yaml", metadataYAML)}},
		{"missing metadata", []string{"run", script}},
		{"bad input", []string{"run", script, "--metadata", writeFile(t, dir, "m2.yaml", metadataYAML), "--input", "{nope"}},
		{"unsupported metadata format", []string{"run", script, "--metadata", writeFile(t, dir, "m.ini", "x=1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrInvocationFailed)
			assert.Empty(t, out)
		})
	}
}

func newRunnerServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := server.NewServer(config.Default(), logging.NewNop(), "test")
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts
}

func TestSubmit(t *testing.T) {
	ts := newRunnerServer(t)
	dir := t.TempDir()
	meta := writeFile(t, dir, "connection.yaml", metadataYAML)

	t.Run("success", func(t *testing.T) {
		script := writeFile(t, dir, "ok.ts", `
			export default async function (nango: any) {
				return { sync: nango.syncName };
			}
		`)

		out, err := execute(t, "submit", script, "--server", ts.URL, "--metadata", meta)
		require.NoError(t, err)

		r := parse(t, out)
		assert.True(t, r.Result.Success)
		assert.Equal(t, map[string]any{"sync": "issues"}, r.Result.Value)
	})

	t.Run("failure", func(t *testing.T) {
		script := writeFile(t, dir, "broken.ts", `
			export default async function () {
				throw new Error('foobar');
			}
		`)

		out, err := execute(t, "submit", script, "--server", ts.URL+"/", "--metadata", meta)
		require.ErrorIs(t, err, ErrInvocationFailed)

		r := parse(t, out)
		require.NotNil(t, r.Result.Error)
		assert.Equal(t, "script_internal_error", r.Result.Error.Type)
		assert.Equal(t, map[string]any{"message": "foobar", "name": "Error"}, r.Result.Error.Payload)
	})

	t.Run("rejected request", func(t *testing.T) {
		script := writeFile(t, dir, "s.ts", `export default async function () {}`)

		out, err := execute(t, "submit", script, "--server", ts.URL)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvocationFailed)
		assert.Contains(t, err.Error(), "400")
		assert.Empty(t, out)
	})
}

func TestSubmitUnreachableServer(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	dir := t.TempDir()
	script := writeFile(t, dir, "s.ts", `export default async function () {}`)
	meta := writeFile(t, dir, "connection.yaml", metadataYAML)

	_, err := execute(t, "submit", script, "--server", url, "--metadata", meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit script")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "syncrunner test")
	assert.Contains(t, out, "commit: abc123")
}
