package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var levelFiles = map[zerolog.Level]string{
	zerolog.DebugLevel: "info.log",
	zerolog.InfoLevel:  "info.log",
	zerolog.WarnLevel:  "warning.log",
	zerolog.ErrorLevel: "error.log",
	zerolog.FatalLevel: "error.log",
	zerolog.PanicLevel: "error.log",
}

// Logger provides leveled logging (debug/info/warning/error) to per-level
// files and the console.
type Logger struct {
	zl     zerolog.Logger
	logDir string
	files  []*os.File
}

// NewLogger creates a Logger writing to the console and to info.log,
// warning.log and error.log inside logDir. An empty logDir disables files.
func NewLogger(console io.Writer, logDir string, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	writers := []io.Writer{zerolog.SyncWriter(zerolog.ConsoleWriter{Out: console, TimeFormat: "2006-01-02 15:04:05"})}

	l := &Logger{logDir: logDir}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		fw, err := l.openLevelFiles()
		if err != nil {
			return nil, err
		}
		writers = append(writers, fw)
	}

	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return l, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// openLevelFiles opens (or creates) one append-only file per level bucket.
func (l *Logger) openLevelFiles() (zerolog.LevelWriter, error) {
	byName := make(map[string]*os.File)
	w := levelFileWriter{files: make(map[zerolog.Level]io.Writer)}

	for level, name := range levelFiles {
		f, ok := byName[name]
		if !ok {
			var err error
			f, err = os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				l.Close()
				return nil, errors.Wrapf(err, "open log file %s", name)
			}
			byName[name] = f
			l.files = append(l.files, f)
		}
		w.files[level] = f
	}
	return w, nil
}

// Component returns a child logger tagging every entry with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		zl:     l.zl.With().Str("component", name).Logger(),
		logDir: l.logDir,
	}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return errors.New("file logging is disabled")
	}
	if !isLevelFile(fileName) {
		return errors.Newf("unknown log file %q", fileName)
	}
	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil {
		return errors.Wrapf(err, "truncate %s", fileName)
	}
	l.Info("Log file %s has been cleared", fileName)
	return nil
}

// Close releases the log files. Only the root logger owns them.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

// ParseLevel parses a log level string; "warning" is accepted as well.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "silent", "disabled", "none":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, errors.Newf("invalid log level: %s", s)
	}
}

func isLevelFile(name string) bool {
	for _, f := range levelFiles {
		if f == name {
			return true
		}
	}
	return false
}

// levelFileWriter routes each entry to the file of its level bucket.
type levelFileWriter struct {
	files map[zerolog.Level]io.Writer
}

func (w levelFileWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (w levelFileWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	f, ok := w.files[level]
	if !ok {
		return len(p), nil
	}
	return f.Write(p)
}
