package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetExecFlags(t *testing.T) {
	t.Helper()
	for _, name := range []string{"detach", "timeout", "workdir"} {
		f := execCmd.Flags().Lookup(name)
		require.NotNil(t, f)
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	}
}

func TestExecDetachRejectsForegroundFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
	}{
		{"timeout", map[string]string{"detach": "true", "timeout": "30s"}},
		{"workdir", map[string]string{"detach": "true", "workdir": "/workspace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { resetExecFlags(t) })
			for flag, value := range tt.flags {
				require.NoError(t, execCmd.Flags().Set(flag, value))
			}

			err := execCmd.RunE(execCmd, []string{"3f9a1c", "true"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--detach cannot be combined")
		})
	}
}
