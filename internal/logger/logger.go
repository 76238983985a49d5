package logger

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.Logger
	debug  bool
	file   *os.File // opened by Init, closed when the output is replaced
)

// Init configures JSONL logging into <baseDir>/log/app.log. A file opened by
// an earlier Init is closed.
func Init(baseDir string) error {
	logDir := filepath.Join(baseDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	setOutput(f, f)
	return nil
}

// SetOutput redirects log lines to w. w stays owned by the caller; a file
// opened by Init is closed.
func SetOutput(w io.Writer) {
	setOutput(w, nil)
}

func setOutput(w io.Writer, owned *os.File) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	file = owned
	logger = newJSONLogger(zapcore.AddSync(w))
}

// Close flushes the logger and closes the file opened by Init. Later
// entries are dropped until the output is set again.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := closeLocked()
	logger = zap.NewNop()
	return err
}

func closeLocked() error {
	if logger != nil {
		_ = logger.Sync()
	}
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

// Sync flushes buffered entries.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}

func Debug(msg string, fields map[string]any) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if !enabled {
		return
	}
	write(zapcore.DebugLevel, msg, fields)
}

func Info(msg string, fields map[string]any) {
	write(zapcore.InfoLevel, msg, fields)
}

func Warn(msg string, fields map[string]any) {
	write(zapcore.WarnLevel, msg, fields)
}

func Error(msg string, fields map[string]any) {
	write(zapcore.ErrorLevel, msg, fields)
}

func newJSONLogger(ws zapcore.WriteSyncer) *zap.Logger {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zapcore.DebugLevel)
	return zap.New(core)
}

func write(level zapcore.Level, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	if ce := logger.Check(level, msg); ce != nil {
		ce.Write(zf...)
	}
}
