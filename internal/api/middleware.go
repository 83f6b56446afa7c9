package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request through zerolog. Server errors
// log at warn, everything else at debug so a polling dashboard stays quiet.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zerolog.DebugLevel
			if v.Status >= 500 {
				level = zerolog.WarnLevel
			}
			event := log.WithLevel(level).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote", v.RemoteIP)
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.Msg("HTTP request")
			return nil
		},
	})
}
