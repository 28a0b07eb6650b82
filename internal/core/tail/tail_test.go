package tail

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/mbx/internal/core/mailbox"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func TestTailer_Dump(t *testing.T) {
	clock := mailbox.NewFakeClock(time.Now())
	store := mailbox.NewMemStore(clock)
	store.Put("LOG.TXT", []byte("[ts] ready\n[ts] claimed command\n"))

	var buf syncBuffer
	tailer := New(store, "LOG.TXT", clock, Options{Writer: &buf})

	require.NoError(t, tailer.Dump())
	assert.Equal(t, "[ts] ready\n[ts] claimed command\n", buf.String())
}

func TestTailer_Dump_MissingLog(t *testing.T) {
	clock := mailbox.NewFakeClock(time.Now())
	store := mailbox.NewMemStore(clock)

	tailer := New(store, "LOG.TXT", clock, Options{})
	assert.Error(t, tailer.Dump())
}

func TestTailer_Follow_StreamsAppendedLines(t *testing.T) {
	store := mailbox.NewDirStore()
	logPath := filepath.Join(t.TempDir(), "LOG.TXT")
	require.NoError(t, store.AppendLine(logPath, "first"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var buf syncBuffer
	tailer := New(store, logPath, mailbox.SystemClock(), Options{
		PollInterval: time.Millisecond,
		Writer:       &buf,
		FromStart:    true,
	})

	done := make(chan error, 1)
	go func() { done <- tailer.Follow(ctx) }()

	require.NoError(t, store.AppendLine(logPath, "second"))

	require.Eventually(t, func() bool {
		return buf.String() == "first\nsecond\n"
	}, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not stop after cancel")
	}
}

func TestTailer_Follow_SkipsExistingContent(t *testing.T) {
	store := mailbox.NewDirStore()
	logPath := filepath.Join(t.TempDir(), "LOG.TXT")
	require.NoError(t, store.AppendLine(logPath, "old line"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var buf syncBuffer
	tailer := New(store, logPath, mailbox.SystemClock(), Options{
		PollInterval: time.Millisecond,
		Writer:       &buf,
		FromStart:    false,
	})

	done := make(chan error, 1)
	go func() { done <- tailer.Follow(ctx) }()

	// Follow must record its starting offset before the append, or the
	// new line is treated as pre-existing content and skipped.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.AppendLine(logPath, "new line"))

	require.Eventually(t, func() bool {
		return buf.String() == "new line\n"
	}, 2*time.Second, time.Millisecond)

	cancel()
	<-done
}
