package metrics

import (
	"net/http"
	"time"

	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/service"
	"heatpump2mqtt/pkg/heatpump_modbus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const NAMESPACE = "heatpump"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	modbusCallSeconds *prometheus.HistogramVec
	modbusErrors      *prometheus.CounterVec
	refreshSeconds    prometheus.Histogram
	refreshFailures   prometheus.Counter
	commands          *prometheus.CounterVec
	signalValue       *prometheus.GaugeVec
	setpointValue     *prometheus.GaugeVec
	operatingMode     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		modbusCallSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "modbus_call_seconds",
			Help:      "Duration of Modbus calls to the unit.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"fn"}),
		modbusErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "modbus_errors_total",
			Help:      "Failed Modbus calls.",
		}, []string{"fn"}),
		refreshSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "refresh_seconds",
			Help:      "Duration of a full mirror refresh, gaps included.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "refresh_failures_total",
			Help:      "Refresh phases aborted by a transport fault.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "commands_total",
			Help:      "Processed commands by outcome.",
		}, []string{"command", "outcome"}),
		signalValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "signal_value",
			Help:      "Last decoded value per signal in engineering units.",
		}, []string{"signal"}),
		setpointValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "setpoint_value",
			Help:      "Intended setpoint per kind.",
		}, []string{"setpoint"}),
		operatingMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "domestic_hot_water_mode",
			Help:      "1 while the unit runs in domestic hot water mode.",
		}),
	}

	m.registry.MustRegister(
		m.modbusCallSeconds,
		m.modbusErrors,
		m.refreshSeconds,
		m.refreshFailures,
		m.commands,
		m.signalValue,
		m.setpointValue,
		m.operatingMode,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ModbusInstrument() *heatpump_modbus.ModbusInstrument {
	return &heatpump_modbus.ModbusInstrument{
		RecordTime: func(fnName string, elapsed time.Duration) {
			m.modbusCallSeconds.WithLabelValues(fnName).Observe(elapsed.Seconds())
		},
		RecordError: func(fnName string, _ error) {
			m.modbusErrors.WithLabelValues(fnName).Inc()
		},
	}
}

func (m *Metrics) LoopInstrument() *service.ControlLoopInstrument {
	return &service.ControlLoopInstrument{
		RecordCommand: func(cmd domain.Command, outcome string) {
			m.commands.WithLabelValues(commandLabel(cmd), outcome).Inc()
		},
		RecordRefresh: func(elapsed time.Duration, err error) {
			if err != nil {
				m.refreshFailures.Inc()
				return
			}
			m.refreshSeconds.Observe(elapsed.Seconds())
		},
	}
}

// PublishState mirrors a snapshot into gauges.
func (m *Metrics) PublishState(snap domain.Snapshot) {
	for _, r := range snap.Readings {
		if !r.Valid {
			continue
		}
		m.signalValue.WithLabelValues(r.Signal.String()).Set(r.Value())
	}
	for _, sp := range snap.Setpoints {
		m.setpointValue.WithLabelValues(sp.Kind.String()).Set(sp.Value())
	}
	if snap.Mode == domain.ModeDomesticHotWater {
		m.operatingMode.Set(1)
	} else {
		m.operatingMode.Set(0)
	}
}

func commandLabel(cmd domain.Command) string {
	if cmd.Kind == domain.CommandGet {
		return "get_" + cmd.Group.String()
	}
	return cmd.Instruction.String()
}
