// Package sim provides an in-memory step port and a tickless dispatch loop
// for exercising the motion core without hardware.
package sim

import (
	"stepcore/core"
)

// PulseEdge records one rising-edge write to the stepping port.
type PulseEdge struct {
	// Tick is the system time of the write.
	Tick uint32

	// Bits is the port value with the invert mask undone: true pin intent.
	Bits uint8
}

var stepBits = [core.NumAxes]uint8{core.XStepBit, core.YStepBit, core.ZStepBit}
var dirBits = [core.NumAxes]uint8{core.XDirectionBit, core.YDirectionBit, core.ZDirectionBit}

// Port is a recording core.StepPort. It decodes every stepping port write
// through the invert mask it was built with and tallies per-axis step
// pulses, signed travel, and pulse timing.
type Port struct {
	invertMask uint8
	portBits   uint8 // raw latched pin levels

	// StepCounts is the number of step pulses seen per axis.
	StepCounts [core.NumAxes]int64

	// Travel is the signed step travel per axis, using the direction bit
	// latched with each pulse.
	Travel [core.NumAxes]int64

	// Rising holds every rising-edge write, in order.
	Rising []PulseEdge

	// OverlappedPulse is set if a rising edge arrived while the previous
	// pulse's step lines were still active.
	OverlappedPulse bool

	enableHigh   bool
	EnableWrites int

	stepLinesActive bool
}

// NewPort returns a recording port that undoes invertMask when decoding.
func NewPort(invertMask uint8) *Port {
	return &Port{invertMask: invertMask}
}

// WriteSteppingPort implements core.StepPort.
func (p *Port) WriteSteppingPort(bits uint8) {
	p.portBits = bits

	active := bits ^ p.invertMask
	if active&core.StepMask == 0 {
		return // direction-only write
	}

	if p.stepLinesActive {
		p.OverlappedPulse = true
	}
	p.stepLinesActive = true
	p.Rising = append(p.Rising, PulseEdge{Tick: core.GetTime(), Bits: active})

	for a := 0; a < core.NumAxes; a++ {
		if active&stepBits[a] == 0 {
			continue
		}
		p.StepCounts[a]++
		if active&dirBits[a] != 0 {
			p.Travel[a]--
		} else {
			p.Travel[a]++
		}
	}
}

// ResetStepPins implements core.StepPort.
func (p *Port) ResetStepPins(bits uint8) {
	p.portBits = (p.portBits &^ core.StepMask) | (bits & core.StepMask)
	p.stepLinesActive = false
}

// SetEnablePin implements core.StepPort.
func (p *Port) SetEnablePin(high bool) {
	p.enableHigh = high
	p.EnableWrites++
}

// EnableHigh reports the current level of the enable pin.
func (p *Port) EnableHigh() bool {
	return p.enableHigh
}

// StepLinesActive reports whether a pulse is outstanding (rising edge seen,
// falling edge not yet).
func (p *Port) StepLinesActive() bool {
	return p.stepLinesActive
}

// PortBits returns the raw latched pin levels.
func (p *Port) PortBits() uint8 {
	return p.portBits
}
