package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	ModelLoads        *prometheus.CounterVec
	ModelLoadDuration prometheus.Histogram
	Generations       *prometheus.CounterVec
	VoiceClones       *prometheus.CounterVec
	DecryptFailures   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active interview sessions.",
		}),
		ModelLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model lifecycle load attempts by outcome.",
		}, []string{"outcome"}),
		ModelLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_load_duration_seconds",
			Help:      "Wall time from load start to the model becoming ready.",
			Buckets:   []float64{1, 5, 10, 20, 40, 60, 90, 120},
		}),
		Generations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation results by operation and serving tier.",
		}, []string{"operation", "tier"}),
		VoiceClones: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_clones_total",
			Help:      "Voice clone attempts by resulting model origin.",
		}, []string{"origin"}),
		DecryptFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Decrypt failures by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveModelLoadDuration(d time.Duration) {
	m.ModelLoadDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
