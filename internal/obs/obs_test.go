package obs

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/viix-io/docplan/internal/stagebuilder"
)

// TestNewMetricsNilRegistererIsUsable is invariant 11 of §8: a nil
// Registerer must not prevent Metrics from being constructed or used, only
// skip registration (so nothing is scraped).
func TestNewMetricsNilRegistererIsUsable(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)
	require.NotPanics(t, func() {
		m.translationsTotal.WithLabelValues("COLL_SCAN").Inc()
		m.contractViolationsTotal.WithLabelValues("COLL_SCAN").Inc()
	})
}

func TestNewMetricsRegistersWhenGiven(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)
	// A registered CounterVec only shows up in Gather() once it has at least
	// one child, so create one per vector without incrementing it.
	m.translationsTotal.WithLabelValues("COLLSCAN")
	m.contractViolationsTotal.WithLabelValues("COLLSCAN")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["stagebuilder_translations_total"])
	require.True(t, names["stagebuilder_contract_violations_total"])
}

// TestNewObsHooksNilArgumentsAreNoOp is invariant 11 of §8: both logger and
// metrics may be nil, and the resulting hooks must still be safe to call.
func TestNewObsHooksNilArgumentsAreNoOp(t *testing.T) {
	hooks := NewObsHooks(nil, nil)

	require.NotPanics(t, func() {
		hooks.OnDispatch(stagebuilder.KindCollScan)
		hooks.OnContractViolation(stagebuilder.KindCollScan, errors.New("boom"))
		hooks.OnDebug("building %s", "widgets")
	})
}

func TestNewObsHooksDrivesMetricsWithoutLogger(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := NewObsHooks(nil, m)

	hooks.OnDispatch(stagebuilder.KindCollScan)
	hooks.OnContractViolation(stagebuilder.KindIxScan, errors.New("boom"))

	families, err := reg.Gather()
	require.NoError(t, err)
	var sawDispatch, sawViolation bool
	for _, f := range families {
		switch f.GetName() {
		case "stagebuilder_translations_total":
			sawDispatch = len(f.GetMetric()) == 1
		case "stagebuilder_contract_violations_total":
			sawViolation = len(f.GetMetric()) == 1
		}
	}
	require.True(t, sawDispatch)
	require.True(t, sawViolation)
}

func TestNewLoggerBuildsUsableLoggers(t *testing.T) {
	jsonLogger := NewLogger(true)
	require.NotNil(t, jsonLogger)
	require.NotPanics(t, func() { jsonLogger.Debug("hello") })

	devLogger := NewLogger(false)
	require.NotNil(t, devLogger)
	require.NotPanics(t, func() { devLogger.Debug("hello") })
}
