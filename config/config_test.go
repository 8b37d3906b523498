package config

import (
	"testing"

	"stepcore/core"
)

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Load([]byte(`{}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, name := range []string{"x", "y", "z"} {
		axis, ok := cfg.Axes[name]
		if !ok {
			t.Fatalf("axis %q missing after defaults", name)
		}
		if axis.StepsPerMM != 80 {
			t.Errorf("axis %q steps/mm = %v, want 80", name, axis.StepsPerMM)
		}
		if axis.MaxFeedRate != 6000 {
			t.Errorf("axis %q max feed = %v, want 6000", name, axis.MaxFeedRate)
		}
	}
	if cfg.Acceleration != 500 {
		t.Errorf("acceleration = %v, want 500", cfg.Acceleration)
	}
	if cfg.PulseMicroseconds != 10 {
		t.Errorf("pulse width = %v, want 10", cfg.PulseMicroseconds)
	}
}

func TestLoadOverridesAndSettingsMapping(t *testing.T) {
	data := []byte(`{
		"axes": {
			"x": {"steps_per_mm": 160, "invert_step": true},
			"z": {"steps_per_mm": 400, "max_feed_rate": 600, "invert_dir": true}
		},
		"acceleration": 750,
		"pulse_microseconds": 4,
		"idle_lock_time_ms": 255
	}`)

	cfg, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Axes["x"].StepsPerMM != 160 {
		t.Errorf("x steps/mm = %v, want 160", cfg.Axes["x"].StepsPerMM)
	}
	// Unspecified field on a present axis still gets its default.
	if cfg.Axes["x"].MaxFeedRate != 6000 {
		t.Errorf("x max feed = %v, want default 6000", cfg.Axes["x"].MaxFeedRate)
	}

	s := cfg.Settings()
	wantMask := uint8(core.XStepBit | core.ZDirectionBit)
	if s.InvertMask != wantMask {
		t.Errorf("invert mask = %02x, want %02x", s.InvertMask, wantMask)
	}
	if s.PulseMicroseconds != 4 {
		t.Errorf("pulse width = %v, want 4", s.PulseMicroseconds)
	}
	if s.StepperIdleLockTime != core.IdleLockKeepEnabled {
		t.Errorf("idle lock = %v, want keep-enabled", s.StepperIdleLockTime)
	}

	pc := cfg.PlannerConfig()
	if pc.StepsPerMM != ([core.NumAxes]float64{160, 80, 400}) {
		t.Errorf("planner steps/mm = %v", pc.StepsPerMM)
	}
	if pc.Acceleration != 750 {
		t.Errorf("planner accel = %v, want 750", pc.Acceleration)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	if _, err := Load([]byte(`{"axes": [}`)); err == nil {
		t.Error("malformed config accepted")
	}
}
