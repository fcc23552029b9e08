package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCheck(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"check"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCheck_Valid(t *testing.T) {
	out, err := executeCheck(t, "testdata/passing.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Suite inventory is valid: 2 fixture(s), 2 template(s)")
	assert.NotContains(t, out, "non-negative")
}

func TestCheck_Verbose(t *testing.T) {
	out, err := executeCheck(t, "-v", "testdata/passing.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded suite \"inventory\" with 2 fixture(s)")
	assert.Contains(t, out, "  stock/archive (skip)")
	assert.Contains(t, out, "    - non-negative")
}

func TestCheck_JSON(t *testing.T) {
	out, err := executeCheck(t, "--format", "json", "testdata/passing.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "inventory", resp.Data.Suite)
	require.Len(t, resp.Data.Fixtures, 2)
	assert.Equal(t, "stock/levels", resp.Data.Fixtures[0].Name)
	assert.Equal(t, []string{"non-negative"}, resp.Data.Fixtures[0].Templates)
	assert.True(t, resp.Data.Fixtures[1].Skip)
}

func TestCheck_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", "testdata/nope.yaml", ErrCodeNotFound},
		{"invalid suite", "testdata/invalid.yaml", ErrCodeInvalidSuite},
		{"bad constraint", "testdata/badconstraint.yaml", ErrCodeCompileFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCheck(t, tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
