// Package obs wires the stage builder's per-build structured log lines and
// counters (§6 expansion). Grounded on amitdeshmukh-graphjin's direct
// go.uber.org/zap logger construction and vitessio-vitess's direct use of
// github.com/prometheus/client_golang. Both collaborators are optional: a
// nil *zap.Logger or nil prometheus.Registerer must never change the
// outcome of a build (§8 invariant 11), only whether it is observed.
package obs

import (
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/viix-io/docplan/internal/stagebuilder"
)

// Metrics holds the two counters §6 expansion names:
// stagebuilder_translations_total{kind} and
// stagebuilder_contract_violations_total{kind}.
type Metrics struct {
	translationsTotal       *prometheus.CounterVec
	contractViolationsTotal *prometheus.CounterVec
}

// NewMetrics constructs and, if reg is non-nil, registers the counters.
// Passing a nil Registerer returns a Metrics whose counters still work
// (prometheus counters are usable unregistered) but are simply never
// scraped — the silent no-op §6 expansion and §8 invariant 11 require.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		translationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagebuilder_translations_total",
			Help: "Count of per-logical-node-kind translator dispatches.",
		}, []string{"kind"}),
		contractViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stagebuilder_contract_violations_total",
			Help: "Count of contract violations raised during a build, by the node kind active when raised.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.translationsTotal, m.contractViolationsTotal)
	}
	return m
}

// NewObsHooks adapts logger and metrics into the stagebuilder.ObsHooks a
// Builder consults during Build. Either argument may be nil.
func NewObsHooks(logger *zap.Logger, metrics *Metrics) stagebuilder.ObsHooks {
	return stagebuilder.ObsHooks{
		OnDispatch: func(kind stagebuilder.NodeKind) {
			if logger != nil {
				logger.Debug("translator dispatch", zap.String("kind", kind.String()))
			}
			if metrics != nil {
				metrics.translationsTotal.WithLabelValues(kind.String()).Inc()
			}
		},
		OnContractViolation: func(kind stagebuilder.NodeKind, err error) {
			if logger != nil {
				logger.Error("contract violation", zap.String("kind", kind.String()), zap.Error(err))
			}
			if metrics != nil {
				metrics.contractViolationsTotal.WithLabelValues(kind.String()).Inc()
			}
		},
		OnDebug: func(format string, args ...any) {
			if logger != nil {
				logger.Sugar().Debugf(format, args...)
			}
		},
	}
}

// NewLogger builds a zap logger in the teacher pack's console-or-json
// style (graphjin's internal/util.NewLogger), trimmed to this module's
// needs: no pretty-console dependency, just zap's own encoders.
func NewLogger(json bool) *zap.Logger {
	if json {
		cfg := zap.NewProductionConfig()
		logger, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}
	cfg := zap.NewDevelopmentConfig()
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
