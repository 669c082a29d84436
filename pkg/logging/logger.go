// Package logging provides component loggers for surfer.
//
// Every package keeps a package-level *Logger created in init() with
// NewLogger. Output goes through a shared zap core that Initialize builds
// from configuration. Until Initialize is called the core defaults to a
// per-session file in ~/.surfer/logs/.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how log entries are written.
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// File is the log file path. Empty means ~/.surfer/logs/<session-id>-surfer.log.
	// Only an explicit File is rotated; session files live for one process.
	File string `mapstructure:"file" yaml:"file"`

	// Console mirrors log entries to stderr.
	Console bool `mapstructure:"console" yaml:"console"`

	// Format is the console encoding: console or json.
	Format string `mapstructure:"format" yaml:"format"`

	// Rotation settings passed to lumberjack when File is set.
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig returns the configuration used before Initialize is called.
func DefaultConfig() Config {
	return Config{
		Level:      "debug",
		Format:     "console",
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

// Logger writes entries for a single component.
//
// All log methods (Debugf, Infof, Warnf, Errorf) are safe for concurrent use.
type Logger struct {
	component string
	sessionID string

	mu    sync.Mutex
	gen   uint64
	sugar *zap.SugaredLogger
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where default log files are stored
	logDir   string
	initOnce sync.Once
	initErr  error

	base       atomic.Pointer[zap.Logger]
	generation atomic.Uint64
	logPath    atomic.Value

	defaultOnce sync.Once
	defaultErr  error

	// owned is the file writer opened by the last Initialize call.
	ownedMu sync.Mutex
	owned   io.Closer
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the default log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir != "" {
			initErr = os.MkdirAll(logDir, 0750)
			return
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".surfer", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// Initialize builds the shared zap core from cfg and swaps it in for every
// existing and future Logger. The file opened by a previous Initialize call
// is closed once the new core is installed.
//
// If the log file cannot be prepared the core falls back to stderr and the
// error is returned so callers can report degraded logging.
func Initialize(cfg Config) error {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	var cores []zapcore.Core
	writer, path, fileErr := openFile(cfg)
	if fileErr == nil {
		cores = append(cores, zapcore.NewCore(encoder("json"), zapcore.AddSync(writer), level))
		logPath.Store(path)
	} else {
		logPath.Store("")
	}

	if cfg.Console || fileErr != nil {
		cores = append(cores, zapcore.NewCore(encoder(cfg.Format), zapcore.Lock(os.Stderr), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("session", getSessionID()))
	install(logger)
	_ = replaceOwned(writer)

	if fileErr != nil {
		logger.Warn("failed to initialize file logging, falling back to stderr", zap.Error(fileErr))
		return fileErr
	}
	return nil
}

// UseLogger installs an already built zap logger as the shared core.
// Tests use it with zaptest/observer. The file opened by Initialize, if any,
// stays open until Close or the next Initialize.
func UseLogger(l *zap.Logger) {
	install(l)
}

// Close flushes the shared core, closes the log file opened by Initialize
// and discards further entries until the next Initialize or UseLogger.
func Close() error {
	syncErr := Sync()
	install(zap.NewNop())
	logPath.Store("")
	closeErr := replaceOwned(nil)
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

func install(l *zap.Logger) {
	if old := base.Swap(l); old != nil {
		_ = old.Sync()
	}
	generation.Add(1)
}

// replaceOwned records w as the writer Initialize opened and closes the
// previous one.
func replaceOwned(w io.WriteCloser) error {
	ownedMu.Lock()
	prev := owned
	owned = w
	ownedMu.Unlock()

	if prev == nil {
		return nil
	}
	return prev.Close()
}

// openFile opens the log destination for cfg. An explicit File goes through
// lumberjack so it is rotated; the default session file is a plain file.
func openFile(cfg Config) (io.WriteCloser, string, error) {
	path, err := resolveFile(cfg.File)
	if err != nil {
		return nil, "", err
	}
	if cfg.File != "" {
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, path, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	return f, path, nil
}

func resolveFile(file string) (string, error) {
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}
		return file, nil
	}
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return filepath.Join(logDir, fmt.Sprintf("%s-surfer.log", getSessionID())), nil
}

func encoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func ensureDefault() error {
	defaultOnce.Do(func() {
		if base.Load() == nil {
			defaultErr = Initialize(DefaultConfig())
		}
	})
	return defaultErr
}

// NewLogger creates a new logger for a specific component.
//
// If the default log file cannot be opened the logger still works, writing
// to stderr, and the error is returned so callers can detect fallback mode.
func NewLogger(component string) (*Logger, error) {
	err := ensureDefault()
	return &Logger{
		component: component,
		sessionID: getSessionID(),
	}, err
}

// current returns the sugared logger bound to the latest shared core.
func (l *Logger) current() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()

	gen := generation.Load()
	if l.sugar == nil || l.gen != gen {
		z := base.Load()
		if z == nil {
			z = zap.NewNop()
		}
		l.sugar = z.Named(l.component).Sugar()
		l.gen = gen
	}
	return l.sugar
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.current().Infof(format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.current().Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.current().Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.current().Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.current().Errorf(format, v...)
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return l.current().With(keysAndValues...)
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Component returns the component name the logger was created for.
func (l *Logger) Component() string {
	return l.component
}

// LogPath returns the path to the active log file, or "" when logging to stderr.
func (l *Logger) LogPath() string {
	return LogPath()
}

// Close flushes buffered entries. Safe to call multiple times.
func (l *Logger) Close() error {
	return Sync()
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// LogPath returns the path of the active log file, or "" when logging to stderr.
func LogPath() string {
	if p, ok := logPath.Load().(string); ok {
		return p
	}
	return ""
}

// GetLogDirectory returns the directory where default logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}

// Sync flushes any buffered log entries.
func Sync() error {
	if z := base.Load(); z != nil {
		if err := z.Sync(); err != nil && !isStdSyncError(err) {
			return err
		}
	}
	return nil
}

// isStdSyncError filters the EINVAL/ENOTTY zap reports when syncing a terminal.
func isStdSyncError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path == "/dev/stderr" || pathErr.Path == "/dev/stdout"
	}
	return false
}
