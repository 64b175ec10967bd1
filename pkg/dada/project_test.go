package dada

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	writeFile(t, path, `
[check]
fuel = 5000
max_depth = 64
workers = 2

[output]
dedupe = true
color = false
width = 100
`)

	config, err := LoadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, config.Check.Fuel)
	assert.Equal(t, 64, config.Check.MaxDepth)
	assert.Zero(t, config.Check.MaxOutcomes)
	assert.True(t, config.Output.Dedupe)
	require.NotNil(t, config.Output.Color)
	assert.False(t, *config.Output.Color)

	opts := config.Options()
	assert.Equal(t, judge.Budget{Fuel: 5000, MaxDepth: 64}, opts.Budget)
	assert.Equal(t, 2, opts.Workers)

	r := NewRenderer(os.Stdout, config)
	assert.False(t, r.Color)
	assert.True(t, r.Dedupe)
	assert.Equal(t, 100, r.Width)
}

func TestLoadProjectConfigErrors(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"syntax":        "[check\n",
		"unknown key":   "[check]\nfule = 1\n",
		"wrong type":    "[check]\nfuel = \"lots\"\n",
		"negative":      "[check]\nmax_depth = -1\n",
		"unknown table": "[lint]\nstrict = true\n",
	} {
		path := filepath.Join(dir, name+".toml")
		writeFile(t, path, content)
		_, err := LoadProjectConfig(path)
		assert.Error(t, err, name)
	}
}

func TestNilConfigOptions(t *testing.T) {
	var config *Config
	assert.Equal(t, judge.Budget{}, config.Options().Budget)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "[check]\nfuel = 10\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	path, config, err := FindProjectConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFile), path)
	assert.Equal(t, 10, config.Check.Fuel)
}

func TestFindProjectConfigStopsAtGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "[check]\nfuel = 10\n")
	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
	nested := filepath.Join(repo, "src")
	require.NoError(t, os.MkdirAll(nested, 0755))

	path, config, err := FindProjectConfig(nested)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Nil(t, config)
}

func TestFindProjectConfigReportsBadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "[check\n")
	_, _, err := FindProjectConfig(root)
	assert.ErrorContains(t, err, ConfigFile)
}
