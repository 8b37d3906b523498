package core

// Axis indices used throughout the motion core
const (
	XAxis = 0
	YAxis = 1
	ZAxis = 2

	NumAxes = 3
)

// Stepping port bit layout. One byte carries the three step bits and the
// three direction bits; a write to the port latches all six at once.
const (
	XStepBit = 1 << 0
	YStepBit = 1 << 1
	ZStepBit = 1 << 2

	XDirectionBit = 1 << 3
	YDirectionBit = 1 << 4
	ZDirectionBit = 1 << 5

	StepMask      = XStepBit | YStepBit | ZStepBit
	DirectionMask = XDirectionBit | YDirectionBit | ZDirectionBit
	SteppingMask  = StepMask | DirectionMask
)

var stepBit = [NumAxes]uint8{XStepBit, YStepBit, ZStepBit}
var directionBit = [NumAxes]uint8{XDirectionBit, YDirectionBit, ZDirectionBit}

// SysState is the cycle controller state
type SysState uint8

const (
	StateIdle SysState = iota
	StateQueued
	StateCycle
	StateHold
	StateAlarm
)

func (s SysState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueued:
		return "queued"
	case StateCycle:
		return "cycle"
	case StateHold:
		return "hold"
	case StateAlarm:
		return "alarm"
	}
	return "unknown"
}

// ExecFlag bits are set asynchronously (from the step interrupt or the
// command layer) and consumed by the main program.
type ExecFlag uint8

const (
	ExecCycleStop ExecFlag = 1 << 0
	ExecAlarm     ExecFlag = 1 << 1
)

// System is the shared system word: controller state, async exec flags,
// auto-start, and the machine position in steps. Position is written only
// by the step interrupt; the exec flags are set from both the step
// interrupt and the main program; state and exec changes are made with
// interrupts briefly disabled.
type System struct {
	state     SysState
	exec      ExecFlag
	autoStart bool

	// Machine position in signed step counts. Written only by the step
	// generator tick.
	position [NumAxes]int32
}

// NewSystem returns a system word in the idle state with auto-start on.
func NewSystem() *System {
	return &System{state: StateIdle, autoStart: true}
}

// State reads the controller state.
func (s *System) State() SysState {
	return s.state
}

func (s *System) setState(state SysState) {
	is := disableInterrupts()
	s.state = state
	restoreInterrupts(is)
}

// SetExec sets flag on the shared exec word.
func (s *System) SetExec(flag ExecFlag) {
	is := disableInterrupts()
	s.exec |= flag
	restoreInterrupts(is)
}

// ClearExec clears flag on the shared exec word.
func (s *System) ClearExec(flag ExecFlag) {
	is := disableInterrupts()
	s.exec &^= flag
	restoreInterrupts(is)
}

// TestExec reports whether flag is set.
func (s *System) TestExec(flag ExecFlag) bool {
	return s.exec&flag != 0
}

// AutoStart reports whether the planner may auto-start a cycle.
func (s *System) AutoStart() bool {
	return s.autoStart
}

// Position returns a tear-free snapshot of the machine position. Interrupts
// are disabled for the copy since the step interrupt mutates the counters
// and the target may use narrow-word writes.
func (s *System) Position() [NumAxes]int32 {
	is := disableInterrupts()
	pos := s.position
	restoreInterrupts(is)
	return pos
}

// SetPosition overwrites the machine position. Only valid while no cycle is
// running (homing, position reset).
func (s *System) SetPosition(pos [NumAxes]int32) {
	is := disableInterrupts()
	s.position = pos
	restoreInterrupts(is)
}
