//go:build rp2040 || rp2350

package rp2040

import (
	"device/rp"
	"machine"

	"stepcore/core"
)

// GPIOStepPort implements core.StepPort with direct SIO register writes.
// Baseline/fallback backend: the pulse falling edge comes from the core's
// pulse timer rather than hardware, so expect a few hundred nanoseconds of
// jitter under interrupt load.
type GPIOStepPort struct {
	enPin machine.Pin

	// pinMask maps each stepping port bit to its GPIO mask.
	pinMask [6]uint32
	allMask uint32
}

// NewGPIOStepPort builds a step port over six GPIO pins in port bit order:
// step X/Y/Z, then direction X/Y/Z.
func NewGPIOStepPort(pins [6]machine.Pin, enPin machine.Pin) *GPIOStepPort {
	p := &GPIOStepPort{enPin: enPin}
	for i, pin := range pins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
		p.pinMask[i] = 1 << uint32(pin)
		p.allMask |= p.pinMask[i]
	}
	enPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return p
}

// WriteSteppingPort implements core.StepPort. Latches all six lines with
// one set and one clear register write.
func (p *GPIOStepPort) WriteSteppingPort(bits uint8) {
	var set uint32
	for i := 0; i < 6; i++ {
		if bits&(1<<uint8(i)) != 0 {
			set |= p.pinMask[i]
		}
	}
	// Using SIO for single-cycle pin updates
	rp.SIO.GPIO_OUT_SET.Set(set)
	rp.SIO.GPIO_OUT_CLR.Set(p.allMask &^ set)
}

// ResetStepPins implements core.StepPort. Rewrites only the step lines.
func (p *GPIOStepPort) ResetStepPins(bits uint8) {
	var set, all uint32
	for i := 0; i < core.NumAxes; i++ {
		all |= p.pinMask[i]
		if bits&(1<<uint8(i)) != 0 {
			set |= p.pinMask[i]
		}
	}
	rp.SIO.GPIO_OUT_SET.Set(set)
	rp.SIO.GPIO_OUT_CLR.Set(all &^ set)
}

// SetEnablePin implements core.StepPort.
func (p *GPIOStepPort) SetEnablePin(high bool) {
	p.enPin.Set(high)
}
