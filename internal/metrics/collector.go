package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Service metrics
	ProcessUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_up",
			Help: "Service status (1=running, 0=stopped)",
		},
		[]string{"name"},
	)

	ProcessRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromux_service_restarts_total",
			Help: "Total number of service restarts",
		},
		[]string{"name", "reason"}, // reason: crash (non-zero or unconfirmed exit) or exit (clean exit)
	)

	ProcessStartTime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_start_time_seconds",
			Help: "Unix timestamp when service started",
		},
		[]string{"name"},
	)

	ProcessExitCode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_last_exit_code",
			Help: "Last exit code of service",
		},
		[]string{"name"},
	)

	// Health check metrics
	HealthCheckStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_health_check_status",
			Help: "Health check status (1=healthy, 0=unhealthy)",
		},
		[]string{"name", "type"},
	)

	HealthCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "micromux_health_check_duration_seconds",
			Help:    "Health check duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"name", "type"},
	)

	HealthCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromux_health_check_total",
			Help: "Total number of health checks performed",
		},
		[]string{"name", "type", "status"}, // status: success, failure
	)

	HealthCheckConsecutiveFails = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_health_check_consecutive_fails",
			Help: "Current consecutive health check failures",
		},
		[]string{"name"},
	)

	// Supervisor metrics
	SupervisorUptime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_supervisor_uptime_seconds",
			Help: "Supervisor uptime in seconds",
		},
		[]string{"name"},
	)

	// Lifecycle hook metrics
	HookExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromux_hook_executions_total",
			Help: "Total number of hook executions",
		},
		[]string{"name", "type", "status"}, // type: pre_start, post_start, pre_stop, post_stop; status: success, failure
	)

	HookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "micromux_hook_duration_seconds",
			Help:    "Hook execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"name", "type"},
	)

	// Engine metrics
	ManagerProcessCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "micromux_engine_service_count",
			Help: "Total number of supervised services",
		},
	)

	ManagerStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "micromux_engine_start_time_seconds",
			Help: "Unix timestamp when the engine started",
		},
	)

	ShutdownDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "micromux_shutdown_duration_seconds",
			Help:    "Duration of graceful shutdown in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300},
		},
	)

	// Resource metrics (CPU, memory, etc.), sampled via gopsutil
	ProcessCPUPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_cpu_percent",
			Help: "Service CPU usage percentage (per-core, can exceed 100)",
		},
		[]string{"process", "instance"},
	)

	ProcessMemoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_memory_bytes",
			Help: "Service memory usage in bytes",
		},
		[]string{"process", "instance", "type"}, // type: rss, vms
	)

	ProcessMemoryPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_memory_percent",
			Help: "Service memory usage as percentage of total system memory",
		},
		[]string{"process", "instance"},
	)

	ProcessThreads = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_threads",
			Help: "Number of threads in service",
		},
		[]string{"process", "instance"},
	)

	ProcessFileDescriptors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_service_file_descriptors",
			Help: "Number of open file descriptors (Linux only)",
		},
		[]string{"process", "instance"},
	)

	ResourceCollectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "micromux_resource_collection_duration_seconds",
			Help:    "Time taken to collect resource metrics",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	ResourceCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromux_resource_collection_errors_total",
			Help: "Total resource collection errors",
		},
		[]string{"process", "instance"},
	)

	// Build info
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "micromux_build_info",
			Help: "micromux build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordProcessStart records a service start event.
func RecordProcessStart(processName string, startTime float64) {
	ProcessUp.WithLabelValues(processName).Set(1)
	ProcessStartTime.WithLabelValues(processName).Set(startTime)
}

// RecordProcessStop records a service stop event.
func RecordProcessStop(processName string, exitCode int) {
	ProcessUp.WithLabelValues(processName).Set(0)
	ProcessExitCode.WithLabelValues(processName).Set(float64(exitCode))
}

// RecordProcessRestart records a service restart.
func RecordProcessRestart(processName, reason string) {
	ProcessRestarts.WithLabelValues(processName, reason).Inc()
}

// RecordHealthCheck records a health check result.
func RecordHealthCheck(processName, checkType string, duration float64, healthy bool) {
	status := "success"
	statusValue := 1.0
	if !healthy {
		status = "failure"
		statusValue = 0.0
	}

	HealthCheckStatus.WithLabelValues(processName, checkType).Set(statusValue)
	HealthCheckDuration.WithLabelValues(processName, checkType).Observe(duration)
	HealthCheckTotal.WithLabelValues(processName, checkType, status).Inc()
}

// RecordHealthCheckFailures records consecutive health check failures.
func RecordHealthCheckFailures(processName string, consecutiveFails int) {
	HealthCheckConsecutiveFails.WithLabelValues(processName).Set(float64(consecutiveFails))
}

// RecordHookExecution records a hook execution.
func RecordHookExecution(hookName, hookType string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	HookExecutions.WithLabelValues(hookName, hookType, status).Inc()
	HookDuration.WithLabelValues(hookName, hookType).Observe(duration)
}

// SetManagerProcessCount sets the total number of managed services.
func SetManagerProcessCount(count int) {
	ManagerProcessCount.Set(float64(count))
}

// SetManagerStartTime sets the engine start time.
func SetManagerStartTime(startTime float64) {
	ManagerStartTime.Set(startTime)
}

// SetBuildInfo sets build information.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// RecordShutdownDuration records the duration of graceful shutdown.
func RecordShutdownDuration(duration float64) {
	ShutdownDuration.Observe(duration)
}
