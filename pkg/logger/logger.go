package logx

import (
	"io"
	"os"

	"github.com/Chative-medical-agent/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerOpts controls the global logger. Debug and PrettyFormat only take
// effect in production; other environments always log pretty at debug level.
type LoggerOpts struct {
	Environment  core.Environment
	Debug        bool `envconfig:"LOG_DEBUG" default:"false"`
	PrettyFormat bool `envconfig:"LOG_PRETTY_FORMAT" default:"false"`

	// Output defaults to stdout.
	Output io.Writer `ignored:"true"`
}

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	conf := safe(opts...)
	out := conf.Output
	if out == nil {
		out = os.Stdout
	}
	console := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = out })

	if !conf.Environment.IsProduction() {
		log.Logger = zerolog.New(console).With().Timestamp().Caller().Logger()
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
		return
	}

	if conf.PrettyFormat {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
	if conf.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
