// Command osrvd starts the object server: the line-protocol listener of
// §6.1 and, unless disabled, the HTTP listener of §6.2, sharing one object
// store and dependency tracker. There is no CLI flag surface — see
// internal/cmn/config's package doc for why.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/s-u/osrv/internal/cmn/config"
	"github.com/s-u/osrv/internal/cmn/nlog"
	"github.com/s-u/osrv/internal/depsvc"
	"github.com/s-u/osrv/internal/evqueue"
	"github.com/s-u/osrv/internal/objstore"
	"github.com/s-u/osrv/internal/therver"
	"github.com/s-u/osrv/internal/wire"
)

// shutdownTimeout bounds how long a graceful Shutdown waits for in-flight
// connections to drain before giving up.
const shutdownTimeout = 10 * time.Second

// gcInterval bounds how often the reclamation pool is swept; it runs on its
// own clock rather than piggybacking on queue traffic (§4.B/§6.3).
const gcInterval = 30 * time.Second

// runGcLoop periodically sweeps store's reclamation pool until stop is
// closed, then signals done.
func runGcLoop(store *objstore.Store, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(gcInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			store.Gc()
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		nlog.Errorf("config: %v", err)
		os.Exit(1)
	}

	store := objstore.New(nil)
	queue := evqueue.New()
	deps := depsvc.New(store, queue)

	lineProto := &wire.LineProtocol{Store: store, Deps: deps}
	lineSrv, err := therver.New(cfg.Host, cfg.Port, cfg.Workers, lineProto.Serve)
	if err != nil {
		nlog.Errorf("therver: line-protocol listener: %v", err)
		os.Exit(1)
	}
	lineSrv.Start()
	nlog.Infof("osrvd: line protocol listening on %s", lineSrv.Addr())

	var httpSrv *therver.Server
	if cfg.HTTPPort != 0 {
		routes := wire.NewHTTPRoutes(store, deps)
		httpSrv, err = therver.New(cfg.Host, cfg.HTTPPort, cfg.Workers, routes.Serve)
		if err != nil {
			nlog.Errorf("therver: http listener: %v", err)
			os.Exit(1)
		}
		httpSrv.Start()
		nlog.Infof("osrvd: http listening on %s", httpSrv.Addr())
	}

	// Gc runs off its own ticker, independent of queue traffic: the queue
	// carries completion events (§6.3) and /work payloads (§6.2) for
	// external consumers, and draining it here would race and consume
	// those entries before any real consumer saw them.
	gcStop := make(chan struct{})
	gcDone := make(chan struct{})
	go runGcLoop(store, gcStop, gcDone)

	// A single signal.Notify on the main goroutine, rather than per-server
	// handlers, matches original_source/src/therver.c's documented signal-
	// masking discipline (mask everywhere except the one thread meant to
	// observe it).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	nlog.Infof("osrvd: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	close(gcStop)
	<-gcDone
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			nlog.Warnf("osrvd: http shutdown: %v", err)
		}
	}
	if err := lineSrv.Shutdown(ctx); err != nil {
		nlog.Warnf("osrvd: line-protocol shutdown: %v", err)
	}
}
