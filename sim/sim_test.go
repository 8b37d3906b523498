package sim

import (
	"testing"

	"stepcore/config"
	"stepcore/core"
	"stepcore/planner"
)

// rig is a full pipeline: planner -> preparer -> generator -> sim port.
type rig struct {
	sys  *core.System
	pl   *planner.Planner
	port *Port
	st   *core.Stepper
}

func newRig(t *testing.T, cfg *config.MachineConfig) *rig {
	t.Helper()
	core.ResetScheduler()
	core.SetTime(0)

	sys := core.NewSystem()
	settings := cfg.Settings()
	pl := planner.New(cfg.PlannerConfig())
	port := NewPort(settings.InvertMask)
	st := core.NewStepper(sys, &settings, pl, port)
	st.Init()
	return &rig{sys: sys, pl: pl, port: port, st: st}
}

func (r *rig) runProgram(t *testing.T, moves [][4]float64) uint32 {
	t.Helper()
	for _, m := range moves {
		if !r.pl.AddLine([core.NumAxes]float64{m[0], m[1], m[2]}, m[3]) {
			t.Fatal("planner ring full")
		}
	}
	r.st.BlocksQueued()
	r.st.CycleStart()

	ticks := Run(r.st, 10*core.TimerFreq)
	if _, pending := core.NextWakeTime(); pending {
		t.Fatal("simulation hit the time budget with work pending")
	}
	if r.sys.TestExec(core.ExecCycleStop) {
		r.st.CycleStopped()
	}
	return ticks
}

func TestSingleAxisCruiseMove(t *testing.T) {
	cfg := config.Default() // 80 steps/mm, accel 500
	r := newRig(t, cfg)

	r.runProgram(t, [][4]float64{
		{12.5, 0, 0, 3000}, // 50 mm/s
	})

	if got := r.port.StepCounts[core.XAxis]; got != 1000 {
		t.Errorf("X pulses = %d, want 1000", got)
	}
	if r.port.StepCounts[core.YAxis] != 0 || r.port.StepCounts[core.ZAxis] != 0 {
		t.Error("idle axes pulsed")
	}
	pos := r.sys.Position()
	if pos != [core.NumAxes]int32{1000, 0, 0} {
		t.Errorf("position = %v, want [1000 0 0]", pos)
	}
	if r.sys.State() != core.StateIdle {
		t.Errorf("state = %v, want idle", r.sys.State())
	}
}

func TestRoundTripReturnsToOrigin(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg)

	r.runProgram(t, [][4]float64{
		{5, 2.5, 0, 1200},
		{0, 0, 0, 1200},
	})

	pos := r.sys.Position()
	if pos != [core.NumAxes]int32{0, 0, 0} {
		t.Errorf("position = %v, want origin", pos)
	}
	// Each axis pulses out and back.
	if got := r.port.StepCounts[core.XAxis]; got != 800 {
		t.Errorf("X pulses = %d, want 800", got)
	}
	if got := r.port.StepCounts[core.YAxis]; got != 400 {
		t.Errorf("Y pulses = %d, want 400", got)
	}
	if r.port.Travel != ([core.NumAxes]int64{}) {
		t.Errorf("net travel = %v, want zero", r.port.Travel)
	}
}

func TestTrapezoidDiagonalExactCounts(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg)

	// Long enough to reach nominal speed: classic trapezoid on both axes.
	r.runProgram(t, [][4]float64{
		{100, 100, 0, 3000},
	})

	if got := r.port.StepCounts[core.XAxis]; got != 8000 {
		t.Errorf("X pulses = %d, want 8000", got)
	}
	if got := r.port.StepCounts[core.YAxis]; got != 8000 {
		t.Errorf("Y pulses = %d, want 8000", got)
	}
	if r.port.OverlappedPulse {
		t.Error("a rising edge arrived before the previous pulse cleared")
	}
	if r.port.StepLinesActive() {
		t.Error("step lines left active")
	}
}

func TestPulseTrainMonotonic(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg)

	r.runProgram(t, [][4]float64{
		{10, 0, 0, 2400},
		{10, 10, 0, 2400},
		{0, 10, 0, 2400},
		{0, 0, 0, 2400},
	})

	for i := 1; i < len(r.port.Rising); i++ {
		if r.port.Rising[i].Tick <= r.port.Rising[i-1].Tick {
			t.Fatalf("pulses %d/%d share tick %d", i-1, i, r.port.Rising[i].Tick)
		}
	}
	pos := r.sys.Position()
	if pos != [core.NumAxes]int32{0, 0, 0} {
		t.Errorf("position = %v, want origin", pos)
	}
}

func TestInvertedPortDecodesIdentically(t *testing.T) {
	cfg := config.Default()
	axes := cfg.Axes
	x := axes["x"]
	x.InvertStep = true
	x.InvertDir = true
	axes["x"] = x

	r := newRig(t, cfg)
	r.runProgram(t, [][4]float64{
		{-3, 0, 0, 1200},
	})

	if got := r.port.StepCounts[core.XAxis]; got != 240 {
		t.Errorf("X pulses = %d, want 240", got)
	}
	if got := r.port.Travel[core.XAxis]; got != -240 {
		t.Errorf("X travel = %d, want -240", got)
	}
}

func TestStarvationDisablesAfterDwell(t *testing.T) {
	cfg := config.Default()
	r := newRig(t, cfg)

	r.runProgram(t, [][4]float64{
		{0.05, 0, 0, 600}, // a handful of steps
	})

	if r.port.EnableHigh() {
		t.Error("drivers still enabled after idle-lock dwell")
	}
	if r.sys.State() != core.StateIdle {
		t.Errorf("state = %v, want idle", r.sys.State())
	}
}
