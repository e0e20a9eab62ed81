package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		setupEnv map[string]string
		wantEnv  map[string]string
	}{
		{
			name: "plain pairs and comments",
			content: `
# Comment line
TEMPO_K1=value1
TEMPO_K2=value2

TEMPO_K3=value with spaces
`,
			wantEnv: map[string]string{
				"TEMPO_K1": "value1",
				"TEMPO_K2": "value2",
				"TEMPO_K3": "value with spaces",
			},
		},
		{
			name:    "export prefix and quotes",
			content: "export TEMPO_K1=\"quoted\"\nTEMPO_K2='single'\nTEMPO_K3=a=b",
			wantEnv: map[string]string{
				"TEMPO_K1": "quoted",
				"TEMPO_K2": "single",
				"TEMPO_K3": "a=b",
			},
		},
		{
			name:     "process env wins",
			content:  `TEMPO_K1=from-file`,
			setupEnv: map[string]string{"TEMPO_K1": "from-process"},
			wantEnv:  map[string]string{"TEMPO_K1": "from-process"},
		},
		{
			name:    "lines without separator are skipped",
			content: "garbage\n=novalue\nTEMPO_K2=ok",
			wantEnv: map[string]string{"TEMPO_K2": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TEMPO_K1", "TEMPO_K2", "TEMPO_K3"} {
				t.Setenv(key, "")
				require.NoError(t, os.Unsetenv(key))
			}
			for key, value := range tt.setupEnv {
				t.Setenv(key, value)
			}

			path := writeFile(t, t.TempDir(), ".env", tt.content)
			require.NoError(t, LoadEnv(path))

			for key, want := range tt.wantEnv {
				assert.Equal(t, want, os.Getenv(key), key)
			}
		})
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "nonexistent.env")))
}

func TestLoadEnvOptional(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnvOptional(filepath.Join(dir, "nonexistent.env")))

	t.Setenv("TEMPO_OPT", "")
	require.NoError(t, os.Unsetenv("TEMPO_OPT"))
	path := writeFile(t, dir, ".env", "TEMPO_OPT=yes")
	require.NoError(t, LoadEnvOptional(path))
	assert.Equal(t, "yes", os.Getenv("TEMPO_OPT"))
}
