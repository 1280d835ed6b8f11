package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauges supplies live values read at scrape time. Nil funcs report 0.
type Gauges struct {
	Providers     func() int
	Subscribers   func() int
	SessionActive func() bool
}

// collector implements prometheus.Collector over Gauges.
type collector struct {
	g Gauges

	providers     *prometheus.Desc
	subscribers   *prometheus.Desc
	sessionActive *prometheus.Desc
}

func newCollector(g Gauges) *collector {
	return &collector{
		g: g,
		providers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "providers_registered"),
			"Providers in the registry.",
			nil, nil,
		),
		subscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "session_stream_subscribers"),
			"Connected session stream clients.",
			nil, nil,
		),
		sessionActive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "session_active"),
			"1 while a session is open.",
			nil, nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.providers
	ch <- c.subscribers
	ch <- c.sessionActive
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.providers, prometheus.GaugeValue, float64(call(c.g.Providers)))
	ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(call(c.g.Subscribers)))
	active := 0.0
	if c.g.SessionActive != nil && c.g.SessionActive() {
		active = 1
	}
	ch <- prometheus.MustNewConstMetric(c.sessionActive, prometheus.GaugeValue, active)
}

func call(f func() int) int {
	if f == nil {
		return 0
	}
	return f()
}
