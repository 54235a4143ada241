package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// levelWriter writes one level to Director/<date>/<level>.log, rotated by
// lumberjack. A new file set is opened when the date changes.
type levelWriter struct {
	config Config
	level  string
	now    func() time.Time

	mu     sync.Mutex
	date   string
	writer *lumberjack.Logger
}

func newLevelWriter(config Config, level string) *levelWriter {
	return &levelWriter{config: config, level: level, now: time.Now}
}

func (w *levelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current().Write(p)
}

// Sync is a no-op; lumberjack writes straight to the file.
func (w *levelWriter) Sync() error {
	return nil
}

// current must be called with mu held.
func (w *levelWriter) current() *lumberjack.Logger {
	date := w.now().Format("2006-01-02")
	if w.writer != nil && w.date == date {
		return w.writer
	}
	if w.writer != nil {
		_ = w.writer.Close()
	}

	dir := filepath.Join(w.config.Director, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = w.config.Director
		_ = os.MkdirAll(dir, 0o755)
	}

	w.date = date
	w.writer = &lumberjack.Logger{
		Filename:   filepath.Join(dir, w.level+".log"),
		MaxSize:    w.config.MaxSize,
		MaxBackups: w.config.MaxBackups,
		MaxAge:     w.config.MaxAge,
		Compress:   w.config.Compress,
		LocalTime:  true,
	}
	return w.writer
}

func (w *levelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	w.writer = nil
	return err
}

var _ io.WriteCloser = (*levelWriter)(nil)

// writeSyncer combines the file writer with stdout when requested.
func writeSyncer(config Config, file *levelWriter) zapcore.WriteSyncer {
	switch {
	case file != nil && config.LogInTerminal:
		return zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(file))
	case file != nil:
		return zapcore.AddSync(file)
	default:
		return zapcore.Lock(os.Stdout)
	}
}
