package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/fire-panel/internal/logic"
)

func TestObserveEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveEvents([]logic.Event{
		{Type: logic.EventGeneralAlarm},
		{Type: logic.EventGeneralAlarm},
		{Type: logic.EventAcknowledged},
	})

	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("GENERAL_ALARM")); got != 2 {
		t.Errorf("expected 2 general alarms, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("ACKNOWLEDGED")); got != 1 {
		t.Errorf("expected 1 acknowledge, got %v", got)
	}
}

func TestObserveState(t *testing.T) {
	m := New(prometheus.NewRegistry())
	var nacs [logic.NumNAC]logic.NACConfig
	for i := range nacs {
		nacs[i].Silenceable = true
	}
	s := logic.NewState(false, nacs)
	logic.Step(&s, logic.Input{SLCAlarm: logic.Edges{Rise: logic.Bit(0) | logic.Bit(4)}})

	m.ObserveState(&s)

	if got := testutil.ToFloat64(m.Causes.WithLabelValues("general_alarm")); got != 2 {
		t.Errorf("expected 2 latched general alarm circuits, got %v", got)
	}
	if got := testutil.ToFloat64(m.Unacknowledged.WithLabelValues("general_alarm")); got != 1 {
		t.Errorf("expected general alarm unacknowledged, got %v", got)
	}
	if got := testutil.ToFloat64(m.Unacknowledged.WithLabelValues("trouble")); got != 0 {
		t.Errorf("expected no unacknowledged trouble, got %v", got)
	}
	if got := testutil.ToFloat64(m.NACActive.WithLabelValues("3")); got != 1 {
		t.Errorf("expected NAC 3 active, got %v", got)
	}
}

func TestNewRegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ScanCyclesTotal.Inc()
	m.ResetPending.Set(1)

	n, err := testutil.GatherAndCount(reg, "firepanel_scan_cycles_total", "firepanel_reset_pending")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 series, got %d", n)
	}
}
