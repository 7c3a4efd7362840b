package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// The log levels accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)

const (
	// logTestWriterName is a reserved output name which sends the log
	// output to logTestWriter. Only meant for testing and benchmarking.
	logTestWriterName = "_testWriter"
)

var (
	log zerolog.Logger

	// logTestWriter is the io.Writer used when Init is called with the
	// output set to logTestWriterName.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars makes every log call panic if any of its
	// arguments contains invalid UTF-8. Useful to catch %s misuse on
	// binary data during testing.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	level string
)

// errorLevelWriter forwards only error-or-worse lines to the wrapped writer.
type errorLevelWriter struct {
	io.Writer
}

func (w errorLevelWriter) WriteLevel(lvl zerolog.Level, p []byte) (int, error) {
	if lvl < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// Init initializes the logger. Output can be "stdout", "stderr" or a file
// path. Log level can be "debug", "info", "warn", "error" or "fatal".
// errorOutput is an optional writer which additionally receives the messages
// of level error or higher.
func Init(logLevel, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	outputs := []io.Writer{zerolog.ConsoleWriter{Out: out, TimeFormat: "3:04:05PM"}}
	if errorOutput != nil {
		outputs = append(outputs, errorLevelWriter{errorOutput})
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log = zerolog.New(zerolog.MultiLevelWriter(outputs...)).With().Timestamp().Logger()

	level = strings.ToLower(logLevel)
	switch level {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	case LogLevelFatal:
		log = log.Level(zerolog.FatalLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", logLevel))
	}
	log.Info().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// Level returns the current log level name, as passed to Init.
func Level() string {
	return level
}

// Logger returns the global zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

// checkInvalidChars panics if any argument carries invalid UTF-8 and the
// check is enabled.
func checkInvalidChars(args ...any) {
	if !panicOnInvalidChars {
		return
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case []byte:
			if !utf8.Valid(v) {
				panic(fmt.Sprintf("log line with invalid chars: %q", string(v)))
			}
		case string:
			if !utf8.ValidString(v) {
				panic(fmt.Sprintf("log line with invalid chars: %q", v))
			}
		}
	}
}

func Debug(args ...any) {
	checkInvalidChars(args...)
	log.Debug().Msg(fmt.Sprint(args...))
}

func Info(args ...any) {
	checkInvalidChars(args...)
	log.Info().Msg(fmt.Sprint(args...))
}

func Warn(args ...any) {
	checkInvalidChars(args...)
	log.Warn().Msg(fmt.Sprint(args...))
}

func Error(args ...any) {
	checkInvalidChars(args...)
	log.Error().Msg(fmt.Sprint(args...))
}

func Fatal(args ...any) {
	checkInvalidChars(args...)
	log.Fatal().Msg(fmt.Sprint(args...))
}

func Debugf(template string, args ...any) {
	checkInvalidChars(args...)
	log.Debug().Msgf(template, args...)
}

func Infof(template string, args ...any) {
	checkInvalidChars(args...)
	log.Info().Msgf(template, args...)
}

func Warnf(template string, args ...any) {
	checkInvalidChars(args...)
	log.Warn().Msgf(template, args...)
}

func Errorf(template string, args ...any) {
	checkInvalidChars(args...)
	log.Error().Msgf(template, args...)
}

func Fatalf(template string, args ...any) {
	checkInvalidChars(args...)
	log.Fatal().Msgf(template, args...)
}

// kvEvent adds the key/value pairs to the event and sends it with msg.
func kvEvent(ev *zerolog.Event, msg string, keysAndValues ...any) {
	checkInvalidChars(keysAndValues...)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	ev.Msg(msg)
}

func Debugw(msg string, keysAndValues ...any) {
	kvEvent(log.Debug(), msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...any) {
	kvEvent(log.Info(), msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...any) {
	kvEvent(log.Warn(), msg, keysAndValues...)
}

// Errorw logs an error with a static message.
func Errorw(err error, msg string) {
	log.Error().Err(err).Msg(msg)
}
