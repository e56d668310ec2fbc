package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptom-checker/internal/analysis"
	"github.com/Skufu/symptom-checker/internal/llm"
	"github.com/Skufu/symptom-checker/internal/model"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENABLE_DB", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "symptom-checker dev\n", out)
}

func TestSeedCommandInMemory(t *testing.T) {
	memoryEnv(t)

	out, err := execute(t, "seed")

	require.NoError(t, err)
	assert.Equal(t, "inserted 8 conditions (8 total)\n", out)
}

func TestSeedCommandRequiresDatabaseURL(t *testing.T) {
	memoryEnv(t)
	t.Setenv("ENABLE_DB", "true")
	t.Setenv("DATABASE_URL", "")

	_, err := execute(t, "seed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestCheckCommandEmergency(t *testing.T) {
	memoryEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")

	out, err := execute(t, "check", "severe", "chest", "pain")

	require.NoError(t, err)
	var result analysis.StartCheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.True(t, result.IsEmergency)
	assert.Equal(t, model.EmergencyMessage, result.Message)
	assert.Empty(t, result.Questions)
}

func TestCheckCommandRequiresSymptom(t *testing.T) {
	memoryEnv(t)

	_, err := execute(t, "check")

	assert.Error(t, err)
}

func TestServeRequiresAPIKey(t *testing.T) {
	memoryEnv(t)

	_, err := execute(t, "serve")

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestDetectStaticRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "cmd", "server")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0o644))

	t.Chdir(nested)

	got, err := filepath.EvalSymlinks(detectStaticRoot())
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDetectStaticRootFallsBackToWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got, err := filepath.EvalSymlinks(detectStaticRoot())
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
