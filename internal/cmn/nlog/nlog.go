// Package nlog is a thin wrapper around logrus giving the rest of the
// module a single place to configure structured logging, and a verbosity
// gate (V) so hot paths can skip formatting work entirely when a level is
// disabled.
package nlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("OSRV_LOG_JSON") != "" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("OSRV_LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
}

// V reports whether verbosity level n is currently enabled, mirroring the
// cheap "should I even bother formatting" gate used around hot-path debug
// logging.
func V(n int) bool {
	if n <= 0 {
		return log.IsLevelEnabled(logrus.DebugLevel)
	}
	return log.IsLevelEnabled(logrus.TraceLevel)
}

func Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

// Logger returns the underlying logrus logger for callers (e.g. HTTP
// middleware) that need a *logrus.Logger directly.
func Logger() *logrus.Logger { return log }
