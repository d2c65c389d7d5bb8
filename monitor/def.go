package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"VisionFusion/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

var (
	PID process.Process

	Registry = prometheus.NewRegistry()

	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})

	FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "frames_total",
		Help: "Total number of annotated frames emitted",
	})
	ThroughputFPS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "throughput_fps",
		Help: "Frames per second over the last closed window",
	})
	PersonsInFrame = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "persons_in_frame",
		Help: "Number of persons with a pose in the latest frame",
	})
	StageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stage_latency_seconds",
		Help:    "Per-frame latency of each perception stage",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"stage"})
	StageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stage_errors_total",
		Help: "Stage failures, including the one that disabled the stage",
	}, []string{"stage"})
	PoseEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pose_events_total",
		Help: "Derived pose events per person and frame",
	}, []string{"event"})
)

func init() {
	Registry.MustRegister(memUsage, cpuUsage, FramesTotal, ThroughputFPS, PersonsInFrame, StageLatency, StageErrors, PoseEvents)
}

// ObserveStage records how long stage took for one frame.
func ObserveStage(stage string, d time.Duration) {
	StageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func prom(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("Prometheus server ListenAndServe error", zap.Error(err))
		}
	}()
	return srv
}

func CheckProcessInfo() {
	MemInfo, err := PID.MemoryInfo()
	if err == nil {
		var MemMB = MemInfo.RSS / 1024 / 1024
		memUsage.Set(float64(MemMB))
	}
	CPUPercent, err := PID.CPUPercent()
	if err == nil {
		CPUPercentFloat := math.Round(CPUPercent*100) / 100
		cpuUsage.Set(CPUPercentFloat)
	}
}

func GotPID() {
	pid := os.Getpid()
	i32Pid := int32(pid)
	PID.Pid = i32Pid
}

// StartMon serves /metrics on port and samples the process every 500ms until ctx ends.
func StartMon(port int, ctx context.Context) {
	PID = process.Process{}
	GotPID()
	srv := prom(port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			CheckProcessInfo()
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log().Error("Prometheus server Shutdown error", zap.Error(err))
	}
}
