package reporter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
)

func newTestReporter() (*Reporter, *mailbox.MemStore, mailbox.Paths) {
	clock := mailbox.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	store := mailbox.NewMemStore(clock)
	paths := mailbox.NewPaths("/mbx")
	return New(store, paths, clock, logger.Nop()), store, paths
}

func TestReporter_SetStatus(t *testing.T) {
	r, store, paths := newTestReporter()

	r.SetStatus(StatusReady)
	data, err := store.Read(paths.Sta)
	require.NoError(t, err)
	assert.Equal(t, "READY\n", string(data))

	// Status is replaced wholesale on every transition.
	r.SetStatus(StatusRunning)
	data, err = store.Read(paths.Sta)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING\n", string(data))
}

func TestReporter_SetStatus_FailureIsSwallowed(t *testing.T) {
	r, store, paths := newTestReporter()
	store.FailWith(paths.Sta, errors.New("disk full"))

	// Must not panic or surface the error.
	r.SetStatus(StatusReady)
	assert.False(t, store.Exists(paths.Sta))
}

func TestReporter_Logf(t *testing.T) {
	r, store, paths := newTestReporter()

	r.Logf("claimed %s", "CMD.TXT")
	r.Logf("executing job")

	data, err := store.Read(paths.Log)
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-03-01 12:00:00] claimed CMD.TXT\n[2024-03-01 12:00:00] executing job\n",
		string(data))
}
