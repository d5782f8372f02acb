package tl2

import "github.com/prometheus/client_golang/prometheus"

// Stats is a point-in-time snapshot of a Region's commit/abort/reclaim
// counters.
type Stats struct {
	Commits       uint64
	Aborts        uint64
	Reclaims      uint64
	FreedSegments uint64
}

// Stats returns a snapshot of the region's counters.
func (r *Region) Stats() Stats {
	return Stats{
		Commits:       r.metrics.commits.Load(),
		Aborts:        r.metrics.aborts.Load(),
		Reclaims:      r.metrics.reclaims.Load(),
		FreedSegments: r.metrics.freedSegments.Load(),
	}
}

var (
	commitsDesc       = prometheus.NewDesc("tl2_commits_total", "committed read-write transactions", nil, nil)
	abortsDesc        = prometheus.NewDesc("tl2_aborts_total", "aborted transactions", nil, nil)
	reclaimsDesc      = prometheus.NewDesc("tl2_reclaims_total", "reclaim passes run", nil, nil)
	freedSegmentsDesc = prometheus.NewDesc("tl2_freed_segments_total", "segments physically freed", nil, nil)
)

// Describe implements prometheus.Collector, letting a Region be
// registered directly with a prometheus.Registerer.
func (r *Region) Describe(ch chan<- *prometheus.Desc) {
	ch <- commitsDesc
	ch <- abortsDesc
	ch <- reclaimsDesc
	ch <- freedSegmentsDesc
}

// Collect implements prometheus.Collector.
func (r *Region) Collect(ch chan<- prometheus.Metric) {
	s := r.Stats()
	ch <- prometheus.MustNewConstMetric(commitsDesc, prometheus.CounterValue, float64(s.Commits))
	ch <- prometheus.MustNewConstMetric(abortsDesc, prometheus.CounterValue, float64(s.Aborts))
	ch <- prometheus.MustNewConstMetric(reclaimsDesc, prometheus.CounterValue, float64(s.Reclaims))
	ch <- prometheus.MustNewConstMetric(freedSegmentsDesc, prometheus.CounterValue, float64(s.FreedSegments))
}
