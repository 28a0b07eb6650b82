package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExecutor_Run(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantOut  string
		wantCode int
		wantErr  bool
		timeout  time.Duration
	}{
		{
			name:     "echo",
			script:   "echo HELLO",
			wantOut:  "HELLO\n",
			wantCode: 0,
		},
		{
			name:     "nonzero exit is not an error",
			script:   "exit 3",
			wantCode: 3,
		},
		{
			name:     "stderr captured",
			script:   "echo oops 1>&2; exit 1",
			wantOut:  "oops\n",
			wantCode: 1,
		},
		{
			name:    "timeout",
			script:  "sleep 5",
			timeout: 50 * time.Millisecond,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewShellExecutor("sh", tt.timeout)
			out, code, err := e.Run(context.Background(), tt.script)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantOut != "" {
				assert.Equal(t, tt.wantOut, out)
			}
		})
	}
}

// A command killed by context cancellation (operator stop signal) must
// surface as a failed run, not as a normal completion with code -1.
func TestShellExecutor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewShellExecutor("sh", 0)
	_, _, err := e.Run(ctx, "echo HELLO")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewShellExecutor_DefaultShell(t *testing.T) {
	e := NewShellExecutor("", 0)
	assert.Equal(t, "sh", e.Shell)
}
