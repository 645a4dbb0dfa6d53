package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 10
)

type Options struct {
	Level string
	// Dir enables a rotated log file next to console output. Empty means console only.
	Dir  string
	Name string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger writing to stdout and, when opts.Dir is set, to a rotated file.
// The returned closer flushes and closes the file writer.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if opts.Dir == "" {
		logger.SetOutput(os.Stdout)
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	name := opts.Name
	if name == "" {
		name = "sellbot"
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, name+".log"),
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		LocalTime:  true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))

	return logger, file, nil
}

// ParseLevel accepts logrus level names as well as the numeric scale
// 0=debug 1=info 2=success 3=warning 4=error 5=critical.
func ParseLevel(s string) (logrus.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return logrus.InfoLevel, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		switch {
		case n <= 0:
			return logrus.DebugLevel, nil
		case n <= 2:
			return logrus.InfoLevel, nil
		case n == 3:
			return logrus.WarnLevel, nil
		default:
			return logrus.ErrorLevel, nil
		}
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Component returns the entry every package logs through.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Discard is a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
