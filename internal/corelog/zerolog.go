package corelog

import (
	"os"

	"github.com/rs/zerolog"
)

// zerologLogger backs the "zerolog" sign with structured, leveled output,
// grounded on other_examples/chronos-tachyon-roxy__handlers.go, the one
// repo in the retrieval corpus that logs through github.com/rs/zerolog.
type zerologLogger struct {
	log zerolog.Logger
}

func (l zerologLogger) Logf(level, msg string, fields map[string]any) {
	var ev *zerolog.Event
	switch level {
	case "debug":
		ev = l.log.Debug()
	case "warn":
		ev = l.log.Warn()
	case "error":
		ev = l.log.Error()
	default:
		ev = l.log.Info()
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (zerologLogger) Close() error { return nil }

func init() {
	Register("zerolog", func(target string) (Logger, error) {
		var w = os.Stderr
		if target != "" && target != "-" {
			f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, err
			}
			return zerologLogger{log: zerolog.New(f).With().Timestamp().Logger()}, nil
		}
		return zerologLogger{log: zerolog.New(w).With().Timestamp().Logger()}, nil
	})
}
