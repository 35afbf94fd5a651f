package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger(os.Stdout)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
	})
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init sets the level and sends output to stdout and, if file is set, to file as well.
func Init(level, file string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	writers := []io.Writer{os.Stdout}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// SetOutput redirects all log output, mostly for tests.
func SetOutput(w io.Writer) { log.SetOutput(w) }

// Logger exposes the underlying logger.
func Logger() *logrus.Logger { return log }

func Log(level logrus.Level, msg string, fields map[string]any) {
	log.WithFields(logrus.Fields(fields)).Log(level, msg)
}

func Debug(msg string, fields map[string]any) { Log(logrus.DebugLevel, msg, fields) }
func Info(msg string, fields map[string]any)  { Log(logrus.InfoLevel, msg, fields) }
func Warn(msg string, fields map[string]any)  { Log(logrus.WarnLevel, msg, fields) }
func Error(msg string, fields map[string]any) { Log(logrus.ErrorLevel, msg, fields) }

// Leveled adapts the logger to retryablehttp.LeveledLogger.
// Client errors are logged at warn since they are retried.
type Leveled struct{}

func (Leveled) Error(msg string, kv ...interface{}) { Warn(msg, pairs(kv)) }
func (Leveled) Warn(msg string, kv ...interface{})  { Warn(msg, pairs(kv)) }
func (Leveled) Info(msg string, kv ...interface{})  { Debug(msg, pairs(kv)) }
func (Leveled) Debug(msg string, kv ...interface{}) { Debug(msg, pairs(kv)) }

func pairs(kv []interface{}) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out[k] = kv[i+1]
		}
	}
	return out
}
