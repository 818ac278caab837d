package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Workers = 2
	cfg.RulesDir = "rules"
	cfg.Output.ExtraColumns = []string{"transaction_type"}
	cfg.Import.MoveProcessed = true

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "schemas", cfg.SchemasDir)
	assert.Empty(t, cfg.RulesDir)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "import", cfg.Import.Dir)
	assert.False(t, cfg.Import.MoveProcessed)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Empty(t, cfg.Output.ExtraColumns)
	assert.Equal(t, "logs/diagnostics.csv", cfg.Diagnostics.File)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("schemas_dir: banks\nlog:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "banks", cfg.SchemasDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))
	t.Setenv("BANKCSV_WORKERS", "7")
	t.Setenv("BANKCSV_LOG_FORMAT", "json")
	t.Setenv("BANKCSV_OUTPUT_DIR", "/tmp/converted")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/converted", cfg.Output.Dir)
}

func TestLoad_NoFileInWorkingDir(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_WorkingDirFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("schemas_dir: mine\n"), 0o644))
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mine", cfg.SchemasDir)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"zero workers", "workers: 0\n", "workers must be at least 1"},
		{"bad format", "log:\n  format: xml\n", "log.format must be text or json"},
		{"empty schemas dir", "schemas_dir: ''\n", "schemas_dir is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "schemas_dir: schemas")
	assert.Contains(t, content, "diagnostics:")
	assert.Contains(t, content, "file: logs/diagnostics.csv")
	assert.NotContains(t, content, "rules_dir")
}

func TestLoadWithFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\nlog:\n  level: warn\n"), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.Int("workers", 1, "")
	fs.String("out-dir", "flagdefault", "")
	require.NoError(t, fs.Parse([]string{"--log-level", "debug"}))

	cfg, err := LoadWithFlags(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Workers, "unset flag keeps the file value")
	assert.Equal(t, "out", cfg.Output.Dir, "unset flag keeps the default")
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}
