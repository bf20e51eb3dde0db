package stages

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

const metricsNamespace = "traffic_count"

// Metrics exports per-frame counters on its own registry.
type Metrics struct {
	registry   *prometheus.Registry
	frames     prometheus.Counter
	detections prometheus.Counter
	vehicles   *prometheus.CounterVec
	paths      prometheus.Gauge
	frameNum   prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_processed_total",
			Help:      "Frames that passed through the pipeline.",
		}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "detections_total",
			Help:      "Vehicle candidates detected across all frames.",
		}),
		vehicles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "vehicles_total",
			Help:      "Vehicles counted, by zone. Zone -1 is the frame edge.",
		}, []string{"zone"}),
		paths: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_paths",
			Help:      "Paths currently tracked.",
		}),
		frameNum: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "frame_number",
			Help:      "Last processed frame number.",
		}),
	}
	m.registry.MustRegister(m.frames, m.detections, m.vehicles, m.paths, m.frameNum)
	return m
}

func (m *Metrics) Name() string { return "metrics" }

// Registry exposes the collectors for export.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values for the node exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Apply implements pipeline.Stage.
func (m *Metrics) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	m.frames.Inc()
	m.frameNum.Set(float64(pipeline.ValueOr(c, pipeline.KeyFrameNumber, 0)))
	m.detections.Add(float64(len(pipeline.ValueOr[[]tracking.Object](c, pipeline.KeyDetectedObjects, nil))))
	m.paths.Set(float64(len(pipeline.ValueOr[[]tracking.Path](c, pipeline.KeyPaths, nil))))
	for _, cr := range pipeline.ValueOr[[]tracking.Crossing](c, pipeline.KeyCrossings, nil) {
		m.vehicles.WithLabelValues(strconv.Itoa(cr.Zone)).Inc()
	}
	return c, nil
}
