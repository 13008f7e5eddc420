package sfs

import (
	"github.com/s-u/osrv/internal/cmn/metrics"
)

// StatsSink wraps another Sink, recording per-tag record and byte counts via
// Prometheus counters before delegating the actual write.
type StatsSink struct {
	Sink
}

func NewStatsSink(inner Sink) *StatsSink { return &StatsSink{Sink: inner} }

func (s *StatsSink) Store(tag Tag, elemSize, length uint64, payload []byte) error {
	metrics.SFSRecords.WithLabelValues(tag.String()).Inc()
	if len(payload) > 0 {
		metrics.SFSBytes.WithLabelValues(tag.String()).Add(float64(len(payload)))
	}
	return s.Sink.Store(tag, elemSize, length, payload)
}
