package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvStringBracedWithDefault(t *testing.T) {
	os.Unsetenv("STOCKAGENT_TEST_MISSING")
	require.NoError(t, os.Setenv("STOCKAGENT_TEST_PRESENT", "hello"))
	defer os.Unsetenv("STOCKAGENT_TEST_PRESENT")

	assert.Equal(t, "hello", expandEnvString("${STOCKAGENT_TEST_PRESENT:-fallback}"))
	assert.Equal(t, "fallback", expandEnvString("${STOCKAGENT_TEST_MISSING:-fallback}"))
}

func TestExpandEnvStringBracedAndSimple(t *testing.T) {
	require.NoError(t, os.Setenv("STOCKAGENT_TEST_VAR", "value"))
	defer os.Unsetenv("STOCKAGENT_TEST_VAR")

	assert.Equal(t, "value", expandEnvString("${STOCKAGENT_TEST_VAR}"))
	assert.Equal(t, "prefix-value", expandEnvString("prefix-$STOCKAGENT_TEST_VAR"))
}

func TestExpandEnvStringNoDollarSignShortCircuits(t *testing.T) {
	assert.Equal(t, "plain string", expandEnvString("plain string"))
}

func TestExpandEnvVarsRecursesThroughMapsAndSlices(t *testing.T) {
	require.NoError(t, os.Setenv("STOCKAGENT_TEST_NESTED", "nested-value"))
	defer os.Unsetenv("STOCKAGENT_TEST_NESTED")

	input := map[string]any{
		"top": "${STOCKAGENT_TEST_NESTED}",
		"nested": map[string]any{
			"inner": "$STOCKAGENT_TEST_NESTED",
		},
		"list": []any{"${STOCKAGENT_TEST_NESTED}", 5},
	}

	out := expandEnvVars(input)
	assert.Equal(t, "nested-value", out["top"])
	assert.Equal(t, "nested-value", out["nested"].(map[string]any)["inner"])
	assert.Equal(t, "nested-value", out["list"].([]any)[0])
	assert.Equal(t, 5, out["list"].([]any)[1])
}

func TestLoadEnvFilesToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	assert.NoError(t, LoadEnvFiles())
}
