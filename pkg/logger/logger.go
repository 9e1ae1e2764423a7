// Package logger builds the service's structured zerolog logger.
//
// Every line passes through a redacting writer so credentials never reach
// the log sink, whatever field a caller attaches them to.
//
//	TRACE (-1) → DEBUG (0) → INFO (1) → WARN (2) → ERROR (3)
package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Redacted replaces the value of every sensitive field.
const Redacted = "[REDACTED]"

// DefaultSensitiveKeys are masked on every logger.
var DefaultSensitiveKeys = []string{"token", "refresh_token", "password", "password_confirm"}

// Options controls how New builds the logger.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty switches to the coloured console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is added as a "service" field on every line when set.
	Service string
	// SensitiveKeys extends DefaultSensitiveKeys.
	SensitiveKeys []string
}

// New returns a logger configured from opts. The console writer, when
// enabled, sits behind the redactor so pretty output is masked too.
func New(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	out = newRedactWriter(out, append(append([]string{}, DefaultSensitiveKeys...), opts.SensitiveKeys...))

	ctx := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}

// redactWriter masks string values of sensitive keys in each JSON line.
// Nested objects are covered since the match is on the raw encoding.
type redactWriter struct {
	out     io.Writer
	pattern *regexp.Regexp
}

func newRedactWriter(out io.Writer, keys []string) *redactWriter {
	quoted := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	return &redactWriter{
		out:     out,
		pattern: regexp.MustCompile(`"(` + strings.Join(quoted, "|") + `)":"(?:[^"\\]|\\.)*"`),
	}
}

var redactedValue = []byte(`"${1}":"` + Redacted + `"`)

func (w *redactWriter) Write(p []byte) (int, error) {
	masked := w.pattern.ReplaceAll(p, redactedValue)
	if _, err := w.out.Write(masked); err != nil {
		return 0, err
	}
	return len(p), nil
}

// parseLevel converts a string to a zerolog.Level.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
