package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// zlog is an optional structured logger. If unset, the global zerolog
// logger is used.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logger() *zerolog.Logger {
	if zlog != nil {
		return zlog
	}
	return &log.Logger
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

var levelNames = map[string]LogLevel{
	"off":   LevelOff,
	"":      LevelOff,
	"error": LevelError,
	"info":  LevelInfo,
	"debug": LevelDebug,
	"1":     LevelDebug,
}

// parseLevel maps a level name to a LogLevel. Unknown names mean LevelInfo.
func parseLevel(s string) LogLevel {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return LevelInfo
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v, ok := os.LookupEnv("STREAMD_HTTP_LOG_LEVEL"); ok {
		return parseLevel(v)
	}
	return LevelInfo
}()

// requestLogLevel lets a single request raise or silence its own logging
// through ?log= or the X-Log-Level header.
func requestLogLevel(r *http.Request) LogLevel {
	for _, v := range []string{r.URL.Query().Get("log"), r.Header.Get("X-Log-Level")} {
		if v != "" {
			return parseLevel(v)
		}
	}
	return defaultLogLevel
}

// logAction records the outcome of a lifecycle request. Failures are logged
// from LevelError, successes from LevelInfo.
func logAction(r *http.Request, action, id string, status int, start time.Time, err error) {
	lvl := requestLogLevel(r)
	if lvl == LevelOff || (err == nil && lvl < LevelInfo) {
		return
	}
	z := logger().Info()
	if err != nil {
		z = logger().Error().Err(err)
	}
	z = z.Str("action", action).Str("manager", id).Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("manager " + action)
}
