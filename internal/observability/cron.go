package observability

import (
	"github.com/rs/zerolog"
)

// CronLogger satisfies cron.Logger on top of zerolog. cron passes its
// context as alternating key/value pairs.
type CronLogger struct {
	Logger zerolog.Logger
}

// Info logs scheduler chatter at debug level; cron is noisy at info.
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug().Fields(pairs(keysAndValues)).Msg("cron: " + msg)
}

// Error logs a scheduler failure, including recovered job panics.
func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Error().Err(err).Fields(pairs(keysAndValues)).Msg("cron: " + msg)
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
