package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIgnorePatterns(t *testing.T) {
	rootDirectory := t.TempDir()
	content := "# comment\n\n/dist/\nbuild/\n*.log\n!keep.log\nbuild/\n   \n/\nsecrets.txt\n"
	require.NoError(t, os.WriteFile(filepath.Join(rootDirectory, ".gitignore"), []byte(content), 0o600))

	patterns, loadError := LoadIgnorePatterns(rootDirectory, nil)
	require.NoError(t, loadError)
	assert.Equal(t, []string{"dist/", "build/", "*.log", "secrets.txt"}, patterns)
}

func TestLoadIgnorePatternsMissingFile(t *testing.T) {
	patterns, loadError := LoadIgnorePatterns(t.TempDir(), nil)
	require.NoError(t, loadError)
	assert.Nil(t, patterns)
}
