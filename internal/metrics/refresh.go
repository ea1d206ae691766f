package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tharanithar-r/postcraft/internal/domain/platform"
)

// Token-lifecycle Prometheus metrics. Standalone package to avoid import
// cycles between the tokens orchestrator and HTTP packages.

var (
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refresh_total",
		Help: "Ciclos de verificación/refresco por plataforma y desenlace",
	}, []string{"platform", "outcome"})

	RefreshDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "token_refresh_duration_ms",
		Help:    "Duración del ciclo de refresco en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"platform"})

	RefreshCoalesced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refresh_coalesced_total",
		Help: "Refrescos concurrentes colapsados en un solo intercambio",
	}, []string{"platform"})
)

// RegisterRefresh registers the token metrics on the given registry (or
// default if nil).
func RegisterRefresh(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{RefreshTotal, RefreshDuration, RefreshCoalesced} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// RefreshRecorder adapta las métricas al contrato del orquestador.
type RefreshRecorder struct{}

func (RefreshRecorder) ObserveRefresh(p platform.Platform, outcome string, d time.Duration) {
	RefreshTotal.WithLabelValues(string(p), outcome).Inc()
	RefreshDuration.WithLabelValues(string(p)).Observe(float64(d.Milliseconds()))
}

func (RefreshRecorder) Coalesced(p platform.Platform) {
	RefreshCoalesced.WithLabelValues(string(p)).Inc()
}
