package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	LifecycleOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkd_lifecycle_operations_total",
			Help: "Lifecycle operations by operation and result",
		},
		[]string{"op", "result"},
	)

	LifecycleOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sparkd_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle operations",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"op"},
	)

	ImagePullFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sparkd_image_pull_failures_total",
			Help: "Image pulls or builds that failed and were ignored",
		},
	)

	// Console and logs
	ConsoleCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkd_console_commands_total",
			Help: "Remote console commands by result",
		},
		[]string{"result"},
	)

	LogStreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sparkd_log_streams_active",
			Help: "Number of open log follow streams",
		},
	)

	// Per-server resource usage, published by the stats poller
	ServerCPUPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sparkd_server_cpu_percent",
			Help: "CPU usage of a server instance in percent",
		},
		[]string{"server_id"},
	)

	ServerMemoryBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sparkd_server_memory_bytes",
			Help: "Memory usage of a server instance",
		},
		[]string{"server_id"},
	)

	ServerMemoryLimitBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sparkd_server_memory_limit_bytes",
			Help: "Memory limit of a server instance",
		},
		[]string{"server_id"},
	)

	ServerNetworkBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sparkd_server_network_bytes",
			Help: "Cumulative network bytes of a server instance by direction",
		},
		[]string{"server_id", "direction"},
	)

	// Scheduler
	ScheduledTaskRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkd_scheduled_task_runs_total",
			Help: "Scheduled task runs by type and result",
		},
		[]string{"type", "result"},
	)

	BackupsRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sparkd_backups_removed_total",
			Help: "Backups deleted by the retention policy",
		},
	)
)

func init() {
	prometheus.MustRegister(LifecycleOperationsTotal)
	prometheus.MustRegister(LifecycleOperationDuration)
	prometheus.MustRegister(ImagePullFailuresTotal)
	prometheus.MustRegister(ConsoleCommandsTotal)
	prometheus.MustRegister(LogStreamsActive)
	prometheus.MustRegister(ServerCPUPercent)
	prometheus.MustRegister(ServerMemoryBytes)
	prometheus.MustRegister(ServerMemoryLimitBytes)
	prometheus.MustRegister(ServerNetworkBytes)
	prometheus.MustRegister(ScheduledTaskRunsTotal)
	prometheus.MustRegister(BackupsRemovedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to a result label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Timer measures an operation's duration.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDurationVec records the elapsed time on the labelled histogram.
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}

// ObserveOperation records the duration and result of a lifecycle operation.
func ObserveOperation(op string, t *Timer, err error) {
	t.ObserveDurationVec(LifecycleOperationDuration, op)
	LifecycleOperationsTotal.WithLabelValues(op, Result(err)).Inc()
}

// SetServerSample publishes a server's resource usage.
func SetServerSample(serverID string, cpuPercent float64, memory, memoryLimit, rx, tx uint64) {
	ServerCPUPercent.WithLabelValues(serverID).Set(cpuPercent)
	ServerMemoryBytes.WithLabelValues(serverID).Set(float64(memory))
	ServerMemoryLimitBytes.WithLabelValues(serverID).Set(float64(memoryLimit))
	ServerNetworkBytes.WithLabelValues(serverID, "rx").Set(float64(rx))
	ServerNetworkBytes.WithLabelValues(serverID, "tx").Set(float64(tx))
}

// ClearServer drops a server's usage series.
func ClearServer(serverID string) {
	ServerCPUPercent.DeleteLabelValues(serverID)
	ServerMemoryBytes.DeleteLabelValues(serverID)
	ServerMemoryLimitBytes.DeleteLabelValues(serverID)
	ServerNetworkBytes.DeleteLabelValues(serverID, "rx")
	ServerNetworkBytes.DeleteLabelValues(serverID, "tx")
}
