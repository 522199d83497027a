package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile, rulesFormat = "", ""
		rootCmd.SetArgs(nil)
	})
	err := Execute(context.Background())
	return out.String(), err
}

func TestRulesCheckFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- {method: GET, path: "/meetings/:meetingId", windowMs: 1000, limit: 2}
- {method: GET, path: "/meetings/{id}", windowMs: 1000, limit: 5}
- {method: GET, path: "/users/:userId/recordings", windowMs: 60000, limit: 30}
`), 0o644))

	out, err := run(t, "rules", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "GET /meetings/:")
	assert.Contains(t, out, "1 rule(s) overwritten")
	assert.Contains(t, out, "ok: 2 rule(s)")
}

func TestRulesCheckReportsEveryProblem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"method":"FETCH","path":"/a","windowMs":1000,"limit":1},
		{"method":"GET","path":"/b","windowMs":0,"limit":1}
	]`), 0o644))

	_, err := run(t, "rules", "check", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 0")
	assert.Contains(t, err.Error(), "rule 1")
}

func TestRulesCheckDefaults(t *testing.T) {
	out, err := run(t, "rules", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 0 rule(s)")

	cfgPath := filepath.Join(t.TempDir(), "meetingkit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("throttle:\n  defaultRules: true\n"), 0o644))
	out, err = run(t, "-c", cfgPath, "rules", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "POST /users/:/meetings")
	assert.Contains(t, out, "PATCH /meetings/:")
}

func TestRulesResolve(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("- {method: DELETE, path: \"/meetings/:meetingId\", windowMs: 1000, limit: 3}\n"), 0o644))
	cfgPath := filepath.Join(dir, "meetingkit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ruleSource:\n  file: "+rulesPath+"\n"), 0o644))

	out, err := run(t, "-c", cfgPath, "rules", "resolve", "delete", "/meetings/9")
	require.NoError(t, err)
	assert.Contains(t, out, "DELETE /meetings/9 -> DELETE /meetings/:meetingId (3 per 1s)")

	out, err = run(t, "-c", cfgPath, "rules", "resolve", "GET", "/meetings/9")
	require.NoError(t, err)
	assert.Contains(t, out, "is not throttled")
}
