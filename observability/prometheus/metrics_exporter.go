package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/jayrulez/Sedulous-Serenity/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	jobDurationSeconds *prom.HistogramVec
	jobPanicTotal      prom.Counter
	jobCanceledTotal   *prom.CounterVec
	jobRejectedTotal   *prom.CounterVec
	queueDepth         *prom.GaugeVec
	workerRestartTotal prom.Counter
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "jobsystem"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Job body execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"priority"})
	panicCounter := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_panic_total",
		Help:      "Total number of job body panics.",
	})
	canceledVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_canceled_total",
		Help:      "Total number of jobs finalized Canceled.",
	}, []string{"reason"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_rejected_total",
		Help:      "Total number of submissions rejected at validation.",
	}, []string{"reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current ready queue depth.",
	}, []string{"lane"})
	restartCounter := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "worker_restart_total",
		Help:      "Total number of background workers respawned by the health monitor.",
	})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicCounter, err = registerCollector(reg, panicCounter); err != nil {
		return nil, err
	}
	if canceledVec, err = registerCollector(reg, canceledVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if restartCounter, err = registerCollector(reg, restartCounter); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		jobDurationSeconds: durationVec,
		jobPanicTotal:      panicCounter,
		jobCanceledTotal:   canceledVec,
		jobRejectedTotal:   rejectedVec,
		queueDepth:         queueDepthVec,
		workerRestartTotal: restartCounter,
	}, nil
}

// RecordJobDuration records job body execution duration.
func (m *MetricsExporter) RecordJobDuration(priority core.JobPriority, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDurationSeconds.WithLabelValues(priorityLabel(priority)).Observe(duration.Seconds())
}

// RecordJobPanic records job body panic events.
func (m *MetricsExporter) RecordJobPanic(jobName string) {
	if m == nil {
		return
	}
	m.jobPanicTotal.Inc()
}

// RecordJobCanceled records jobs finalized Canceled.
func (m *MetricsExporter) RecordJobCanceled(reason string) {
	if m == nil {
		return
	}
	m.jobCanceledTotal.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

// RecordJobRejected records submissions rejected at validation.
func (m *MetricsExporter) RecordJobRejected(reason string) {
	if m == nil {
		return
	}
	m.jobRejectedTotal.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records ready queue depth per lane.
func (m *MetricsExporter) RecordQueueDepth(lane string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(lane, "unknown")).Set(float64(depth))
}

// RecordWorkerRestart records health monitor worker respawns.
func (m *MetricsExporter) RecordWorkerRestart(workerID int) {
	if m == nil {
		return
	}
	m.workerRestartTotal.Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func priorityLabel(priority core.JobPriority) string {
	switch priority {
	case core.JobPriorityHigh:
		return "high"
	case core.JobPriorityNormal:
		return "normal"
	default:
		return "unknown"
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
