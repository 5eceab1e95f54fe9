package permits

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// limiterCollector exports the runtime statistics of a limiter
// as Prometheus metrics. Values are read from Stats at scrape time.
type limiterCollector struct {
	limiter Limiter

	capacity        *prometheus.Desc
	available       *prometheus.Desc
	waiting         *prometheus.Desc
	windows         *prometheus.Desc
	acquired        *prometheus.Desc
	released        *prometheus.Desc
	clampedReleases *prometheus.Desc
	cancelled       *prometheus.Desc
}

// NewCollector returns a prometheus.Collector exposing the statistics
// of the given limiter, labelled with limiter=name.
//
// Composite limiters get one series per composed limiter,
// told apart by the component label (the index in the configuration).
func NewCollector(name string, limiter Limiter) prometheus.Collector {
	constLabels := prometheus.Labels{"limiter": name}
	labels := []string{"component"}

	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc("permits_"+metric, help, labels, constLabels)
	}

	return &limiterCollector{
		limiter:         limiter,
		capacity:        desc("capacity", "Configured number of permits per window."),
		available:       desc("available", "Permits that can be granted right now."),
		waiting:         desc("waiting", "Callers currently blocked waiting for a permit."),
		windows:         desc("windows_total", "Windows started by the replenisher."),
		acquired:        desc("acquired_total", "Permits granted."),
		released:        desc("released_total", "Release calls, including clamped ones."),
		clampedReleases: desc("clamped_releases_total", "Release calls ignored because all permits were available."),
		cancelled:       desc("cancelled_total", "Permit requests aborted by cancellation or shutdown."),
	}
}

func (c *limiterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.available
	ch <- c.waiting
	ch <- c.windows
	ch <- c.acquired
	ch <- c.released
	ch <- c.clampedReleases
	ch <- c.cancelled
}

func (c *limiterCollector) Collect(ch chan<- prometheus.Metric) {
	for i, s := range c.stats() {
		component := strconv.Itoa(i)

		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), component)
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(s.Available), component)
		ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, float64(s.Waiting), component)
		ch <- prometheus.MustNewConstMetric(c.windows, prometheus.CounterValue, float64(s.Windows), component)
		ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.CounterValue, float64(s.Acquired), component)
		ch <- prometheus.MustNewConstMetric(c.released, prometheus.CounterValue, float64(s.Released), component)
		ch <- prometheus.MustNewConstMetric(c.clampedReleases, prometheus.CounterValue, float64(s.ClampedReleases), component)
		ch <- prometheus.MustNewConstMetric(c.cancelled, prometheus.CounterValue, float64(s.Cancelled), component)
	}
}

func (c *limiterCollector) stats() []RuntimeStatistics {
	switch l := c.limiter.(type) {
	case RateLimiter:
		return []RuntimeStatistics{l.Stats()}
	case CompositeRateLimiter:
		return l.Stats().LimitersStats
	default:
		return nil
	}
}
