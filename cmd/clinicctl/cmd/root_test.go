package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ADDR", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSettingsShow(t *testing.T) {
	out := runCommand(t, "settings", "show")
	assert.Contains(t, out, `"baseCurrency": "USD"`)
}

func TestSettingsApplyRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"taxRate":`), 0o600))

	rootCmd.SetArgs([]string{"settings", "apply", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, rootCmd.Execute())
}

func TestNextNumber(t *testing.T) {
	out := runCommand(t, "settings", "next-number")
	assert.Regexp(t, `^INV-\d{6}-0001\n$`, out)
}

func TestMigrateMemory(t *testing.T) {
	out := runCommand(t, "migrate")
	assert.Equal(t, "memory store migrated\n", out)
}
