// Package logging builds the process logger. Output goes to stderr, as a
// console writer on a terminal and JSON otherwise, and optionally to a
// rotating file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	nesterrors "infranest/internal/errors"
)

const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 5
	fileMaxAgeDays = 14
)

// Options selects level and outputs.
type Options struct {
	Level string
	// File enables a rotating JSON log file when non-empty.
	File string
	// Out overrides stderr. A non-terminal Out always gets JSON.
	Out io.Writer
}

var globalsOnce sync.Once //nolint:gochecknoglobals // one-time zerolog setup

func configureGlobals() {
	globalsOnce.Do(func() {
		zerolog.TimestampFieldName = "ts"
		zerolog.MessageFieldName = "event"
		zerolog.DurationFieldUnit = time.Millisecond
	})
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, nesterrors.Wrapf(nesterrors.ErrConfigInvalid, "log level %q", s)
	}
	return lvl, nil
}

// New builds a logger and installs it as the zerolog global. The returned
// closer releases the log file and must be called on shutdown.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	configureGlobals()

	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var closer io.Closer = nopCloser{}
	writer := console(opts.Out)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return zerolog.Nop(), closer, nesterrors.Wrap(err, "create log directory")
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		closer = lj
		writer = zerolog.MultiLevelWriter(writer, lj)
	}

	logger := zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}

func console(out io.Writer) io.Writer {
	if out == nil {
		out = os.Stderr
	}
	f, ok := out.(*os.File)
	if ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
