package utils

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStringIntoCommandAndArguments(t *testing.T) {
	tests := []struct {
		name string
		line string
		cmd  string
		args []string
	}{
		{"bare command", "list", "list", []string{}},
		{"key and value", "put foo bar", "put", []string{"foo", "bar"}},
		{"quoted value with spaces", `put city "new york"`, "put", []string{"city", "new york"}},
		{"single quotes", `get 'my key'`, "get", []string{"my key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := SplitStringIntoCommandAndArguments(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}

	t.Run("unterminated quote", func(t *testing.T) {
		_, _, err := SplitStringIntoCommandAndArguments(`put k "oops`)
		assert.Error(t, err)
	})

	t.Run("blank line", func(t *testing.T) {
		_, _, err := SplitStringIntoCommandAndArguments("   ")
		assert.Error(t, err)
	})
}

func TestHandleCLIInputs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg, err := HandleCLIInputs(fs, []string{"-dir", "/tmp/x", "-rw", "-dfsize", "8", "get", "k"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x", cfg.Dir)
	assert.True(t, cfg.ReadWrite)
	assert.False(t, cfg.SyncOnPut)
	assert.Equal(t, 8, cfg.MaxDatafileSizeMB)
	assert.Equal(t, []string{"get", "k"}, fs.Args())

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, err = HandleCLIInputs(fs, []string{"-dfsize", "0"})
	assert.Error(t, err)
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	assert.False(t, PathExists(path))
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))
	assert.True(t, PathExists(path))

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	require.NoError(t, TruncateAt(f, 4))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))

	assert.NoError(t, SyncDir(dir))
}
