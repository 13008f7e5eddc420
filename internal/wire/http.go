package wire

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/s-u/osrv/internal/cmn/metrics"
	"github.com/s-u/osrv/internal/depsvc"
	"github.com/s-u/osrv/internal/evqueue"
	"github.com/s-u/osrv/internal/httpd"
	"github.com/s-u/osrv/internal/objstore"
	"github.com/s-u/osrv/internal/sfs"
	"github.com/s-u/osrv/internal/therver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPRoutes implements the /data, /work, /healthz and /metrics routes of
// §6.2, grounded on original_source/src/ohsrv.c's http_process. /healthz and
// /metrics are the expansion's additions (SPEC_FULL.md §6.2).
type HTTPRoutes struct {
	Store *objstore.Store
	Deps  *depsvc.Tracker
	Queue *evqueue.Queue // the queue /work pushes onto; by default Deps.Queue()
}

// NewHTTPRoutes wires routes against store and deps, defaulting the /work
// queue to deps.Queue() per SPEC_FULL.md §9's resolution of Open Question 3 (an
// explicit, overridable parameter rather than a hidden shared global).
func NewHTTPRoutes(store *objstore.Store, deps *depsvc.Tracker) *HTTPRoutes {
	return &HTTPRoutes{Store: store, Deps: deps, Queue: deps.Queue()}
}

// Serve is a therver.ProcessFunc dispatching HTTP requests on a connection.
func (h *HTTPRoutes) Serve(c *therver.Conn) {
	httpd.Serve(c, h.dispatch)
}

func (h *HTTPRoutes) dispatch(req *httpd.Request, conn *httpd.Conn) {
	switch {
	case strings.HasPrefix(req.Path, "/data/"):
		h.handleData(req, conn)
	case strings.HasPrefix(req.Path, "/work/"):
		h.handleWork(req, conn)
	case req.Path == "/healthz":
		h.handleHealthz(req, conn)
	case req.Path == "/metrics":
		h.handleMetrics(req, conn)
	default:
		_ = conn.Respond(404, "Invalid API Path", "text/plain", 0, "")
	}
}

// handleData implements /data/<key>, matching ohsrv.c's http_process
// "/data/" branch: GET/HEAD return the stored artifact (structured values
// stream via chunked SFS encoding, raw values are sent directly), DELETE
// removes it (404 if absent), PUT stores the request body and triggers
// dependency completion once the artifact is visible.
func (h *HTTPRoutes) handleData(req *httpd.Request, conn *httpd.Conn) {
	key := dataKey(req.Path)

	switch req.Method {
	case httpd.MethodGET, httpd.MethodHEAD:
		art, ok := h.Store.Get(key, false)
		if !ok {
			_ = conn.Respond(404, "Object Not Found", "text/plain", 0, "")
			return
		}
		if req.Method == httpd.MethodGET && art.Structured != nil {
			_ = conn.Respond(200, "OK", "application/octet-stream", -1, "")
			sink := httpd.NewChunkSink(conn)
			if err := sfs.Encode(sink, *art.Structured); err != nil {
				return
			}
			_ = sink.Close()
			return
		}
		_ = conn.Respond(200, "OK", "application/octet-stream", int64(len(art.Raw)), "")
		if req.Method == httpd.MethodGET {
			_ = conn.Send(art.Raw)
		}
		return

	case httpd.MethodDELETE:
		if _, ok := h.Store.Get(key, true); ok {
			_ = conn.Respond(200, "OK", "text/plain", 0, "")
		} else {
			_ = conn.Respond(404, "Object Not Found", "text/plain", 0, "")
		}
		return

	case httpd.MethodPUT:
		h.Store.Put(key, req.Body, nil)
		// Put has already released its own mutex by the time it returns;
		// Complete is safe to call here, matching depsvc's documented
		// cross-subsystem lock-order contract.
		h.Deps.Complete(key)
		_ = conn.Respond(200, "OK", "text/plain", 0, "")
		return

	default:
		_ = conn.Respond(405, "Method Not Allowed", "text/plain", 0, "")
	}
}

func dataKey(path string) string {
	rest := path[len("/data/"):]
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// handleWork implements /work/<path>: POST-only, pushing the request body
// onto the shared queue, matching ohsrv.c's http_process "/work/" branch.
func (h *HTTPRoutes) handleWork(req *httpd.Request, conn *httpd.Conn) {
	if req.Method != httpd.MethodPOST {
		_ = conn.Respond(405, "Method Not Allowed", "text/plain", 0, "")
		return
	}
	if h.Queue == nil {
		_ = conn.Respond(404, "No Queue", "text/plain", 0, "")
		return
	}
	if len(req.Body) < 1 {
		_ = conn.Respond(403, "Invalid payload", "text/plain", 0, "")
		return
	}
	h.Queue.Push(evqueue.NewEntry(req.Body, nil), false)
	_ = conn.Respond(200, "OK", "text/plain", 0, "")
}

// healthzBody is the /healthz JSON payload: a point-in-time snapshot of
// every registered therver.Server plus the /work queue depth.
type healthzBody struct {
	Servers   []therver.Info `json:"servers"`
	QueueLen  int            `json:"queue_len"`
}

func (h *HTTPRoutes) handleHealthz(req *httpd.Request, conn *httpd.Conn) {
	body := healthzBody{Servers: therver.Snapshot()}
	if h.Queue != nil {
		body.QueueLen = h.Queue.Len()
	}
	buf, err := json.Marshal(body)
	if err != nil {
		_ = conn.Respond(500, "Internal Server Error", "text/plain", 0, "")
		return
	}
	_ = conn.Respond(200, "OK", "application/json", int64(len(buf)), "")
	if req.Method != httpd.MethodHEAD {
		_ = conn.Send(buf)
	}
}

// handleMetrics serves Prometheus text exposition via the shared registry.
// The therver/httpd stack speaks raw HTTP/1.x itself rather than
// net/http, so promhttp's http.Handler is invoked through a minimal adapter
// rather than mounted directly.
func (h *HTTPRoutes) handleMetrics(req *httpd.Request, conn *httpd.Conn) {
	buf, contentType := metrics.Gather()
	_ = conn.Respond(200, "OK", contentType, int64(len(buf)), "")
	if req.Method != httpd.MethodHEAD {
		_ = conn.Send(buf)
	}
}
