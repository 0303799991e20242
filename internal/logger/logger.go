// Package logger owns tempo's process-wide log. The TUI draws on the
// terminal, so records normally go only to a rotating tempo.log in the
// configured directory. `tempo serve` and --debug also copy them to stderr.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created under Config.Dir.
const FileName = "tempo.log"

var current atomic.Pointer[log.Logger]

// Config selects where records go and how verbose they are.
type Config struct {
	Debug bool
	// Level is one of debug, info, warn, error. Unknown values mean warn.
	Level string
	// Dir holds the rotating log file. Empty sends records to stderr.
	Dir string
	// Stderr copies records to stderr as well as the file.
	Stderr bool
}

// Init builds the logger described by cfg and makes it the one Get returns.
func Init(cfg Config) (*log.Logger, error) {
	out, err := cfg.output()
	if err != nil {
		return nil, err
	}
	l := log.NewWithOptions(out, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           cfg.level(),
		Prefix:          "tempo",
	})
	current.Store(l)
	return l, nil
}

func (c Config) output() (io.Writer, error) {
	var out []io.Writer
	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return nil, err
		}
		out = append(out, &lumberjack.Logger{
			Filename:   filepath.Join(c.Dir, FileName),
			MaxSize:    5, // megabytes
			MaxBackups: 2,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	if c.Debug || c.Stderr || len(out) == 0 {
		out = append(out, os.Stderr)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return io.MultiWriter(out...), nil
}

func (c Config) level() log.Level {
	if c.Debug {
		return log.DebugLevel
	}
	if lvl, err := log.ParseLevel(c.Level); err == nil && c.Level != "" {
		return lvl
	}
	return log.WarnLevel
}

// Get returns the logger installed by Init, or a silent one before that.
func Get() *log.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return Discard()
}

// Discard returns a logger that drops everything, for tests and for
// components built without one.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
