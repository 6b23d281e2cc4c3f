package flutterhost

import (
	"bytes"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinefabric/flutterhost-go/embedder"
)

// syncedBuffer guards the log sink: the finalizer goroutine writes while
// the test polls.
type syncedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *syncedBuffer {
	t.Helper()
	logs := &syncedBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return logs
}

func TestResponseHandleDroppedWithoutReplyWarns(t *testing.T) {
	logs := captureLogs(t)

	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	func() {
		h := newResponseHandle("leaky/channel", embedder.ResponseToken(1), engine.sendResponse)
		_ = h
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return strings.Contains(logs.String(), "dropped without a response")
	}, 2*time.Second, 10*time.Millisecond, "unanswered handle must be flagged when collected")
	assert.Contains(t, logs.String(), "leaky/channel")
	assert.Zero(t, raw.responseCount())
}

func TestResponseHandleAnsweredIsCollectedSilently(t *testing.T) {
	logs := captureLogs(t)

	raw := newFakeRawEngine()
	engine := NewEngine(raw)

	func() {
		h := newResponseHandle("quiet/channel", embedder.ResponseToken(2), engine.sendResponse)
		require.NoError(t, h.Respond([]byte{1}))
	}()

	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.NotContains(t, logs.String(), "dropped without a response")
	assert.Equal(t, 1, raw.responseCount())
}
