// Package metrics exposes panel counters and gauges to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/fire-panel/internal/logic"
)

const metricPrefix = "firepanel_"

// Metrics bundles the panel metrics.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	ScanCyclesTotal   prometheus.Counter
	ConversionsTotal  prometheus.Counter
	ADCErrorsTotal    prometheus.Counter
	InputErrorsTotal  prometheus.Counter
	OutputErrorsTotal prometheus.Counter
	DroppedEvents     prometheus.Counter
	Causes            *prometheus.GaugeVec
	Unacknowledged    *prometheus.GaugeVec
	NACActive         *prometheus.GaugeVec
	ResetPending      prometheus.Gauge
}

// New constructs the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_total",
				Help: "Total panel events by type",
			},
			[]string{"type"},
		),
		ScanCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "scan_cycles_total",
			Help: "Completed full scan cycles",
		}),
		ConversionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "conversions_total",
			Help: "Completed analog conversions",
		}),
		ADCErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "adc_errors_total",
			Help: "Failed analog conversions",
		}),
		InputErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "input_errors_total",
			Help: "Failed digital input reads",
		}),
		OutputErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "output_errors_total",
			Help: "Failed output driver writes",
		}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "dropped_events_total",
			Help: "Events dropped because the publish queue was full",
		}),
		Causes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "latched_circuits",
				Help: "Number of circuits latched in each cause register",
			},
			[]string{"register"},
		),
		Unacknowledged: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "unacknowledged",
				Help: "1 when the condition category awaits acknowledgement",
			},
			[]string{"category"},
		),
		NACActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "nac_active",
				Help: "1 when the notification circuit is commanded active",
			},
			[]string{"nac"},
		),
		ResetPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "reset_pending",
			Help: "1 while the reset countdown is running",
		}),
	}
	reg.MustRegister(
		m.EventsTotal,
		m.ScanCyclesTotal,
		m.ConversionsTotal,
		m.ADCErrorsTotal,
		m.InputErrorsTotal,
		m.OutputErrorsTotal,
		m.DroppedEvents,
		m.Causes,
		m.Unacknowledged,
		m.NACActive,
		m.ResetPending,
	)
	return m
}

var nacLabels = [logic.NumNAC]string{"1", "2", "3", "4"}

// ObserveEvents counts published events by type.
func (m *Metrics) ObserveEvents(events []logic.Event) {
	for _, e := range events {
		m.EventsTotal.WithLabelValues(string(e.Type)).Inc()
	}
}

// ObserveState sets the state gauges from s.
func (m *Metrics) ObserveState(s *logic.State) {
	m.Causes.WithLabelValues("pre_alarm").Set(float64(s.Causes.PreAlarm.Count()))
	m.Causes.WithLabelValues("general_alarm").Set(float64(s.Causes.GeneralAlarm.Count()))
	m.Causes.WithLabelValues("slc_trouble").Set(float64(s.Causes.SLCTrouble.Count()))
	m.Causes.WithLabelValues("nac_trouble").Set(float64(s.Causes.NACTrouble.Count()))
	m.Causes.WithLabelValues("nac_disabled").Set(float64(s.Causes.NACDisabled.Count()))
	m.Causes.WithLabelValues("general_trouble").Set(float64(s.Causes.GeneralTrouble.Count()))

	m.Unacknowledged.WithLabelValues("pre_alarm").Set(flag(s.Unacked&logic.CategoryPreAlarm != 0))
	m.Unacknowledged.WithLabelValues("general_alarm").Set(flag(s.Unacked&logic.CategoryGeneralAlarm != 0))
	m.Unacknowledged.WithLabelValues("trouble").Set(flag(s.Unacked&logic.CategoryTrouble != 0))

	for i, n := range s.NACs {
		m.NACActive.WithLabelValues(nacLabels[i]).Set(flag(n.Active))
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
