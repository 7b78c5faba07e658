package prometheus

import (
	"testing"
	"time"

	"github.com/jayrulez/Sedulous-Serenity/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("jobsystem", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordJobDuration(core.JobPriorityHigh, 250*time.Millisecond)
	exporter.RecordJobPanic("decode")
	exporter.RecordJobCanceled("cascade")
	exporter.RecordJobRejected("cycle")
	exporter.RecordQueueDepth("background", 7)
	exporter.RecordWorkerRestart(3)

	if got := testutil.ToFloat64(exporter.jobPanicTotal); got != 1 {
		t.Fatalf("panic total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.jobCanceledTotal.WithLabelValues("cascade")); got != 1 {
		t.Fatalf("canceled total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.jobRejectedTotal.WithLabelValues("cycle")); got != 1 {
		t.Fatalf("rejected total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("background")); got != 7 {
		t.Fatalf("queue depth = %v, want 7", got)
	}
	if got := testutil.ToFloat64(exporter.workerRestartTotal); got != 1 {
		t.Fatalf("restart total = %v, want 1", got)
	}

	histCount, err := histogramSampleCount(exporter.jobDurationSeconds.WithLabelValues("high"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("jobsystem", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("jobsystem", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordJobPanic("a")
	second.RecordJobPanic("b")

	if got := testutil.ToFloat64(first.jobPanicTotal); got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
