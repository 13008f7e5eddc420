// Package config loads server configuration from the environment (and an
// optional .env file), with no CLI flag parsing — a CLI is explicitly out
// of scope for this service.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/s-u/osrv/internal/cmn/nlog"
)

// Config holds the knobs needed to start the line-protocol and HTTP
// listeners.
type Config struct {
	Host       string // empty = any
	Port       int    // osrv line-protocol port
	HTTPPort   int    // ohsrv HTTP port, 0 disables the HTTP listener
	Workers    int    // worker pool size, 1..1000
	BufferSize int    // OSRV_BUFFER_SIZE, bytes; not passed to httpd, whose line bound is the fixed httpd.MaxLineSize
}

// Default values mirror the C original's compiled-in constants where one
// exists (32KiB line buffer, see original_source/src/http.c).
const (
	defaultPort       = 6311
	defaultHTTPPort   = 6312
	defaultWorkers    = 8
	defaultBufferSize = 32 * 1024
)

// Load reads OSRV_* environment variables, optionally seeded from a .env
// file in the working directory (godotenv.Load silently no-ops if the file
// is absent).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		nlog.Debugf("config: no .env file loaded: %v", err)
	}

	c := &Config{
		Host:       os.Getenv("OSRV_HOST"),
		Port:       envInt("OSRV_PORT", defaultPort),
		HTTPPort:   envInt("OSRV_HTTP_PORT", defaultHTTPPort),
		Workers:    envInt("OSRV_WORKERS", defaultWorkers),
		BufferSize: envInt("OSRV_BUFFER_SIZE", defaultBufferSize),
	}

	if c.Workers < 1 || c.Workers > 1000 {
		return nil, errInvalidWorkers(c.Workers)
	}
	if c.Port < 1 || c.Port > 65535 {
		return nil, errInvalidPort(c.Port)
	}
	return c, nil
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		nlog.Warnf("config: invalid integer for %s=%q, using default %d", name, v, def)
		return def
	}
	return n
}
