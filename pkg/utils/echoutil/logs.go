package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs one line per request and one per response, with the
// elapsed time and the error the handler returned, if any.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		method := c.Request().Method
		url := c.Request().URL
		started := time.Now()
		c.Logger().Infof("< %s %s", method, url)

		err := next(c)

		c.Logger().Infof(
			"> %d %s %s in %v / error = %+v",
			c.Response().Status, method, url, time.Since(started), err,
		)
		return err
	}
}

// SetLevel applies a loglevel name to the server logger. Unknown names and
// the empty string fall back to warn.
func SetLevel(e *echo.Echo, loglevel string) {
	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel %q, falling back to warn", loglevel)
	}
}
