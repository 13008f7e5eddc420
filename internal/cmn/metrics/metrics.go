// Package metrics holds the process-wide Prometheus collectors shared
// across internal packages, and a Handler for the /metrics HTTP route.
package metrics

import (
	"net/http"
	"net/http/httptest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StoreObjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "osrv_store_objects",
		Help: "Number of artifacts currently held in the object store.",
	})
	StoreBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "osrv_store_bytes",
		Help: "Total bytes of raw artifact payload currently held in the object store.",
	})
	SFSRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osrv_sfs_records_total",
		Help: "SFS records written through an sfs.StatsSink, by tag.",
	}, []string{"tag"})
	SFSBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osrv_sfs_bytes_total",
		Help: "SFS payload bytes written through an sfs.StatsSink, by tag.",
	}, []string{"tag"})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osrv_http_requests_total",
		Help: "HTTP requests served, by method, path prefix, and status code.",
	}, []string{"method", "path", "code"})
)

// Handler returns the standard Prometheus text-exposition HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Gather renders the current text-exposition body and its content type.
// The therver/httpd stack speaks raw HTTP/1.x directly rather than through
// net/http, so an httptest.ResponseRecorder is used to drive the standard
// promhttp.Handler and capture its output rather than reimplementing the
// exposition format by hand.
func Gather() (body []byte, contentType string) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	ct := rec.Header().Get("Content-Type")
	if ct == "" {
		ct = "text/plain; version=0.0.4"
	}
	return rec.Body.Bytes(), ct
}
