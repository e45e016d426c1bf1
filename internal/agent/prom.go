package agent

import (
	"github.com/perfdash/perfdash/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const promNamespace = "perfdash"

// Kill outcomes recorded in the kills counter.
const (
	killOK       = "ok"
	killNotFound = "not_found"
	killInvalid  = "invalid"
	killFailed   = "failed"
)

// promMetrics holds the agent's exported series on a private registry.
type promMetrics struct {
	registry *prometheus.Registry

	cpuPercent    prometheus.Gauge
	memoryPercent prometheus.Gauge
	memoryBytes   *prometheus.GaugeVec
	diskPercent   *prometheus.GaugeVec
	feedClients   prometheus.Gauge
	kills         *prometheus.CounterVec
}

func newPromMetrics() *promMetrics {
	m := &promMetrics{
		registry: prometheus.NewRegistry(),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "cpu_usage_percent",
			Help:      "Total CPU utilization in percent",
		}),
		memoryPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "memory_usage_percent",
			Help:      "Virtual memory utilization in percent",
		}),
		memoryBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "memory_bytes",
			Help:      "Memory in bytes by type",
		}, []string{"type"}),
		diskPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "disk_used_percent",
			Help:      "Disk utilization in percent by mountpoint",
		}, []string{"mountpoint"}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "feed_clients",
			Help:      "Connected live feed clients",
		}),
		kills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "kills_total",
			Help:      "Process kill requests by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.cpuPercent,
		m.memoryPercent,
		m.memoryBytes,
		m.diskPercent,
		m.feedClients,
		m.kills,
	)
	return m
}

func (m *promMetrics) observeSnapshot(s metrics.Snapshot) {
	m.cpuPercent.Set(s.CPU.Percent)
	m.memoryPercent.Set(s.Memory.Percent)
	m.memoryBytes.With(prometheus.Labels{"type": "used"}).Set(float64(s.Memory.UsedBytes))
	m.memoryBytes.With(prometheus.Labels{"type": "total"}).Set(float64(s.Memory.TotalBytes))
	m.memoryBytes.With(prometheus.Labels{"type": "swap_used"}).Set(float64(s.Memory.SwapUsedBytes))
	m.memoryBytes.With(prometheus.Labels{"type": "swap_total"}).Set(float64(s.Memory.SwapTotalBytes))
}

func (m *promMetrics) observeDisks(disks []metrics.DiskUsage) {
	m.diskPercent.Reset()
	for _, d := range disks {
		m.diskPercent.With(prometheus.Labels{"mountpoint": d.Mountpoint}).Set(d.UsedPercent)
	}
}
