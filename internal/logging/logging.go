// Package logging builds the process logger: logrus with the nested
// formatter on stderr, plus an optional rotating file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimestampFormat is used for every log line.
const TimestampFormat = "02 Jan 06 - 15:04"

// Options configure New.
type Options struct {
	Level string

	// File, when set, receives a copy of every line and is rotated at
	// 100 MB, keeping three compressed backups for a week.
	File string

	// Output defaults to os.Stderr. stdout is never used: it carries MCP
	// and JSON output.
	Output io.Writer

	NoColors bool
}

// New returns a configured logger.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:              opts.NoColors,
		TimestampFormat:       TimestampFormat,
		CallerFirst:           true,
		CustomCallerFormatter: callerFormatter(opts.NoColors),
	})

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(true)
	return logger, nil
}

func callerFormatter(noColors bool) func(*runtime.Frame) string {
	return func(f *runtime.Frame) string {
		s := strings.Split(f.Function, ".")
		funcName := s[len(s)-1]
		if noColors {
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		}
		return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
	}
}
