package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observe installs an in-memory core and restores the previous one afterwards.
func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()

	prev := base.Load()
	core, logs := observer.New(level)
	UseLogger(zap.New(core))

	t.Cleanup(func() {
		if prev != nil {
			UseLogger(prev)
		}
	})
	return logs
}

func TestNewLogger(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	logger, _ := NewLogger("test-component")
	require.NotNil(t, logger)
	defer logger.Close()

	assert.Equal(t, "test-component", logger.Component())
	assert.Equal(t, GetSessionID(), logger.SessionID())

	logger.Debugf("debug %d", 1)
	logger.Infof("info %s", "two")
	logger.Warnf("warn")
	logger.Errorf("error: %v", os.ErrNotExist)
	logger.Printf("printf")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, "test-component", entries[0].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[4].Level)
}

func TestLoggerFollowsCoreSwap(t *testing.T) {
	first := observe(t, zapcore.DebugLevel)
	logger, _ := NewLogger("swap")
	logger.Infof("before")

	core, second := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	logger.Infof("after")

	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, "after", second.All()[0].Message)
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)
	logger, _ := NewLogger("levels")

	logger.Debugf("hidden")
	logger.Infof("hidden")
	logger.Warnf("shown")

	assert.Equal(t, 1, logs.Len())
}

func TestConcurrentLogging(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)
	logger, _ := NewLogger("concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.Infof("goroutine %d message %d", id, j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, logs.Len())
}

// closeAfter releases whatever file the test's Initialize calls opened.
func closeAfter(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { _ = Close() })
}

func TestInitializeWritesFile(t *testing.T) {
	closeAfter(t)

	path := filepath.Join(t.TempDir(), "nested", "surfer.log")
	cfg := DefaultConfig()
	cfg.File = path
	require.NoError(t, Initialize(cfg))
	assert.Equal(t, path, LogPath())

	logger, _ := NewLogger("file")
	logger.Infof("persisted entry")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted entry")
	assert.Contains(t, string(data), GetSessionID())
}

func TestSessionIDStable(t *testing.T) {
	assert.Equal(t, GetSessionID(), GetSessionID())
	assert.NotEmpty(t, GetSessionID())
}

func TestInitializeClosesPreviousFile(t *testing.T) {
	closeAfter(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	logger, _ := NewLogger("reinit")

	cfg := DefaultConfig()
	cfg.File = first
	require.NoError(t, Initialize(cfg))
	logger.Infof("one")

	cfg.File = second
	require.NoError(t, Initialize(cfg))
	logger.Infof("two")
	require.NoError(t, Sync())

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), "one")
	assert.NotContains(t, string(data), "two")

	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "two")
}

func TestCloseDiscardsLaterEntries(t *testing.T) {
	closeAfter(t)
	path := filepath.Join(t.TempDir(), "surfer.log")
	logger, _ := NewLogger("close")

	cfg := DefaultConfig()
	cfg.File = path
	require.NoError(t, Initialize(cfg))
	logger.Infof("kept")

	require.NoError(t, Close())
	assert.Empty(t, LogPath())
	logger.Infof("dropped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")

	assert.NoError(t, Close(), "closing twice is harmless")
}

func TestSessionFileStartsNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	closeAfter(t)

	// Falls back to stderr when the home directory is not writable; either
	// way nothing may keep running after Close.
	_ = Initialize(DefaultConfig())
	logger, _ := NewLogger("session")
	logger.Infof("entry")

	require.NoError(t, Close())
}
