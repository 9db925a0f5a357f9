package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// fileSink is the rotating writer opened by NewFromEnv; Sync closes it.
var (
	fileSink   io.Closer
	fileSinkMu sync.Mutex
)

// Logger is a logrus entry carrying the service field plus any context fields.
type Logger struct {
	*logrus.Entry
}

// Config describes a logger writing to a single destination.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // nil means stdout
	ServiceName string    // value of the "service" field
}

// DefaultConfig returns JSON at info level on stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "mojiscan",
	}
}

// New creates a Logger from cfg; nil uses DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	return build(cfg.Level, cfg.Format, cfg.ServiceName, out)
}

// NewFromEnv creates a Logger from environment configuration; nil reads LoadFromEnv.
// Outside APP_ENV=local it also writes to a lumberjack-rotated file.
func NewFromEnv(envCfg *EnvConfig) *Logger {
	if envCfg == nil {
		envCfg = LoadFromEnv()
	}
	out := envCfg.Output
	if out == nil {
		out = envOutput(envCfg)
	}
	return build(envCfg.Level, envCfg.Format, envCfg.ServiceName, out)
}

func envOutput(envCfg *EnvConfig) io.Writer {
	local := envCfg.Environment == "local"
	if local || envCfg.LogFile == "" {
		return os.Stdout
	}

	rotated := &lumberjack.Logger{
		Filename:   envCfg.LogFile,
		MaxSize:    envCfg.MaxSize,
		MaxBackups: envCfg.MaxBackups,
		MaxAge:     envCfg.MaxAge,
		Compress:   envCfg.Compress,
	}
	fileSinkMu.Lock()
	fileSink = rotated
	fileSinkMu.Unlock()

	if envCfg.LogFileOnly {
		return rotated
	}
	return io.MultiWriter(os.Stdout, rotated)
}

func build(levelName, format, service string, out io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetReportCaller(true)
	base.SetFormatter(formatter(format))

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	return &Logger{Entry: base.WithField("service", service)}
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: shortCaller,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: shortCaller,
	}
}

// Sync closes the rotating log file, if one was opened.
//
//	logger.SetDefaultLogger(logger.NewFromEnv(nil))
//	defer logger.Sync()
func Sync() error {
	fileSinkMu.Lock()
	defer fileSinkMu.Unlock()

	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

// Redact masks every occurrence of the given secrets in messages and string
// or error fields of all loggers derived from l. Blank secrets are ignored.
func (l *Logger) Redact(secrets ...string) {
	var kept []string
	for _, s := range secrets {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return
	}
	l.Logger.AddHook(&redactHook{secrets: kept})
}

const redacted = "[REDACTED]"

type redactHook struct {
	secrets []string
}

func (h *redactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *redactHook) Fire(e *logrus.Entry) error {
	e.Message = h.mask(e.Message)
	for k, v := range e.Data {
		switch val := v.(type) {
		case string:
			e.Data[k] = h.mask(val)
		case error:
			e.Data[k] = h.mask(val.Error())
		}
	}
	return nil
}

func (h *redactHook) mask(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}

func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// shortCaller reduces the caller to "pkg.Func" and "file.go:line".
func shortCaller(frame *runtime.Frame) (string, string) {
	fn := frame.Function
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

// CtxDebug logs at Debug level through the context logger.
func CtxDebug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}
