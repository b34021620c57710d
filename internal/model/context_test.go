// internal/model/context_test.go
package model

import (
	"testing"
	"time"
)

func TestContextFor(t *testing.T) {
	// 2026-02-02 is a Monday, 2026-02-07 a Saturday.
	tests := []struct {
		day  int
		hour int
		want TimeContext
	}{
		{2, 5, WeekdayNight},
		{2, 6, WeekdayMorning},
		{2, 11, WeekdayMorning},
		{2, 12, WeekdayAfternoon},
		{2, 17, WeekdayAfternoon},
		{2, 18, WeekdayEvening},
		{2, 22, WeekdayEvening},
		{2, 23, WeekdayNight},
		{6, 0, WeekdayNight},
		{7, 7, WeekendNight},
		{7, 8, WeekendDay},
		{8, 20, WeekendDay},
		{8, 21, WeekendNight},
	}

	for _, tt := range tests {
		ts := time.Date(2026, 2, tt.day, tt.hour, 30, 0, 0, time.UTC)
		if got := ContextFor(ts); got != tt.want {
			t.Errorf("ContextFor(%s %02d:30) = %q, want %q", ts.Weekday(), tt.hour, got, tt.want)
		}
	}
}

func TestContextValid(t *testing.T) {
	for _, c := range AllContexts {
		if !c.Valid() {
			t.Errorf("%q should be valid", c)
		}
	}
	if TimeContext("weekday_lunch").Valid() {
		t.Error("unknown context reported valid")
	}
}

func TestSampleValue(t *testing.T) {
	s := SystemSample{CPUPercent: Float(42.5), MemoryUsed: Uint(1024)}

	if v, ok := s.Value(MetricCPUPercent); !ok || v != 42.5 {
		t.Errorf("cpu_percent = %v,%v want 42.5,true", v, ok)
	}
	if v, ok := s.Value(MetricMemoryUsed); !ok || v != 1024 {
		t.Errorf("memory_used = %v,%v want 1024,true", v, ok)
	}
	if _, ok := s.Value(MetricSwapPercent); ok {
		t.Error("swap_percent should be absent")
	}
	if _, ok := s.Value("no_such_metric"); ok {
		t.Error("unknown metric should be absent")
	}
}

func TestAnomalyTypeFamilies(t *testing.T) {
	if !CPUSpike.IsCPU() || CPUSpike.IsMemory() {
		t.Error("cpu_spike family wrong")
	}
	if !MemoryLeak.IsMemory() {
		t.Error("memory_leak should be memory family")
	}
	if !SwapThrashing.IsIOOrSwap() || !IOBottleneck.IsIOOrSwap() {
		t.Error("swap/io family wrong")
	}
}
