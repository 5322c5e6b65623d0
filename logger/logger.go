package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.RWMutex
	root = newDefault()
)

// Config selects the level and destination of the process-wide logger.
type Config struct {
	Level   string // debug, info, warn, error
	LogFile string // empty means stderr only
}

// Formatter renders "[time] [LEVL] [component] message key=value ...".
type Formatter struct {
	TimestampFormat string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s]", entry.Time.Format(f.TimestampFormat), level)
	if c, ok := entry.Data["component"]; ok {
		fmt.Fprintf(&b, " [%v]", c)
	}
	b.WriteString(" ")
	b.WriteString(entry.Message)
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&Formatter{TimestampFormat: "15:04:05.000"})
	return l
}

// ParseLevel maps a config string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Init replaces the process-wide logger. When a log file is configured output
// goes to both stderr and the file.
func Init(cfg Config) error {
	l := newDefault()
	l.SetLevel(ParseLevel(cfg.Level))

	if cfg.LogFile != "" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		l.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	mu.Lock()
	root = l
	mu.Unlock()
	return nil
}

// SetOutput redirects the process-wide logger, mainly for tests.
func SetOutput(w io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	root.SetOutput(w)
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()
	return root.WithField("component", component)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
