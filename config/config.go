// Package config loads machine configuration from JSON and maps it onto
// the motion core and planner settings.
package config

import (
	"encoding/json"
	"fmt"

	"stepcore/core"
	"stepcore/planner"
)

// AxisConfig configures one linear axis.
type AxisConfig struct {
	StepsPerMM  float64 `json:"steps_per_mm"`
	MaxFeedRate float64 `json:"max_feed_rate"` // mm/min
	InvertStep  bool    `json:"invert_step"`
	InvertDir   bool    `json:"invert_dir"`
}

// MachineConfig is the complete machine description.
type MachineConfig struct {
	Axes map[string]AxisConfig `json:"axes"`

	// Acceleration along the path, mm/s^2.
	Acceleration float64 `json:"acceleration"`

	// JunctionDeviation for cornering speed, mm.
	JunctionDeviation float64 `json:"junction_deviation"`

	PulseMicroseconds uint8 `json:"pulse_microseconds"`
	InvertStepEnable  bool  `json:"invert_step_enable"`

	// IdleLockTimeMS dwell before disabling drivers; 255 keeps them
	// enabled.
	IdleLockTimeMS uint8 `json:"idle_lock_time_ms"`
}

var axisNames = [core.NumAxes]string{"x", "y", "z"}

// Load parses a JSON machine configuration and applies defaults.
func Load(data []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse machine config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *MachineConfig {
	cfg := &MachineConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *MachineConfig) {
	if cfg.Axes == nil {
		cfg.Axes = make(map[string]AxisConfig, core.NumAxes)
	}
	for _, name := range axisNames {
		axis := cfg.Axes[name]
		if axis.StepsPerMM == 0 {
			axis.StepsPerMM = 80.0
		}
		if axis.MaxFeedRate == 0 {
			axis.MaxFeedRate = 6000.0 // 100 mm/s
		}
		cfg.Axes[name] = axis
	}

	if cfg.Acceleration == 0 {
		cfg.Acceleration = 500.0
	}
	if cfg.JunctionDeviation == 0 {
		cfg.JunctionDeviation = 0.05
	}
	if cfg.PulseMicroseconds == 0 {
		cfg.PulseMicroseconds = 10
	}
	if cfg.IdleLockTimeMS == 0 {
		cfg.IdleLockTimeMS = 25
	}
}

// Settings maps the configuration onto the motion core settings, folding
// the per-axis polarity flags into the port invert mask.
func (cfg *MachineConfig) Settings() core.Settings {
	s := core.Settings{
		PulseMicroseconds:   cfg.PulseMicroseconds,
		InvertStepEnable:    cfg.InvertStepEnable,
		StepperIdleLockTime: cfg.IdleLockTimeMS,
	}

	stepBits := [core.NumAxes]uint8{core.XStepBit, core.YStepBit, core.ZStepBit}
	dirBits := [core.NumAxes]uint8{core.XDirectionBit, core.YDirectionBit, core.ZDirectionBit}
	for i, name := range axisNames {
		axis := cfg.Axes[name]
		if axis.InvertStep {
			s.InvertMask |= stepBits[i]
		}
		if axis.InvertDir {
			s.InvertMask |= dirBits[i]
		}
	}
	return s
}

// PlannerConfig maps the configuration onto the planner limits.
func (cfg *MachineConfig) PlannerConfig() planner.Config {
	pc := planner.Config{
		Acceleration:      cfg.Acceleration,
		JunctionDeviation: cfg.JunctionDeviation,
	}
	for i, name := range axisNames {
		axis := cfg.Axes[name]
		pc.StepsPerMM[i] = axis.StepsPerMM
		pc.MaxFeedRate[i] = axis.MaxFeedRate
	}
	return pc
}
