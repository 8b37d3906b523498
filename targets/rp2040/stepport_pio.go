//go:build rp2040

// Package rp2040 provides hardware step port backends for RP2040 boards.
package rp2040

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"stepcore/core"
)

// PIO program for the stepping port. Each FIFO word carries two port
// states: bits 0-5 are the rising-edge pin levels (step + direction), bits
// 6-11 the falling-edge levels (direction only, step pins at rest). The
// program latches the first state, waits out the pulse width, then latches
// the second, so the step pulse width is hardware-timed with zero jitter.
//
// buildStepPortProgram assembles the program using AssemblerV0.
func buildStepPortProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                   // 0: pull block
		asm.Out(rp2pio.OutDestPins, 6).Delay(7).Encode(), // 1: out pins, 6 [7]  (rising)
		asm.Out(rp2pio.OutDestPins, 6).Encode(),          // 2: out pins, 6      (falling)
		// .wrap
	}
}

const stepPortPIOOrigin = 0 // Load at offset 0 for correct jump addresses

// PIOStepPort implements core.StepPort on a PIO state machine driving six
// consecutive pins laid out like the stepping port byte: step X/Y/Z on
// basePin..basePin+2, direction X/Y/Z on basePin+3..basePin+5.
type PIOStepPort struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	basePin machine.Pin
	enPin   machine.Pin
	offset  uint8

	// restingStep is the invert mask restricted to the step bits: the pin
	// levels the step lines idle at between pulses.
	restingStep uint8

	// lastBits is the most recent port state, used to hold direction
	// levels across the hardware falling edge.
	lastBits uint8
}

// NewPIOStepPort creates a PIO step port.
// pioNum selects PIO0 or PIO1; smNum the state machine (0-3).
func NewPIOStepPort(pioNum, smNum uint8, basePin, enPin machine.Pin, invertMask uint8) *PIOStepPort {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PIOStepPort{
		pio:         pioHW,
		sm:          pioHW.StateMachine(smNum),
		basePin:     basePin,
		enPin:       enPin,
		restingStep: invertMask & core.StepMask,
	}
}

// Init claims the state machine, loads the program, and configures the six
// port pins plus the enable pin. pulseMicroseconds sets the hardware pulse
// width via the state machine clock divider (the program holds the rising
// state for 8 PIO cycles).
func (p *PIOStepPort) Init(pulseMicroseconds uint8) error {
	p.sm.TryClaim()

	program := buildStepPortProgram()
	offset, err := p.pio.AddProgram(program, stepPortPIOOrigin)
	if err != nil {
		return err
	}
	p.offset = offset

	for i := machine.Pin(0); i < 6; i++ {
		(p.basePin + i).Configure(machine.PinConfig{Mode: p.pio.PinMode()})
	}
	p.enPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(p.basePin, 6)
	// Shift right, autopull disabled (explicit PULL), 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	// 8 PIO cycles span the requested pulse width.
	sysHz := uint32(machine.CPUFrequency())
	div := sysHz / 8 * uint32(pulseMicroseconds) / 1000000
	if div < 1 {
		div = 1
	}
	cfg.SetClkDivIntFrac(uint16(div), 0)

	p.sm.Init(offset, cfg)
	p.sm.SetPindirsConsecutive(p.basePin, 6, true)
	p.sm.SetPinsConsecutive(p.basePin, 6, false)
	p.sm.SetEnabled(true)

	return nil
}

// WriteSteppingPort implements core.StepPort. Queues the rising state and
// its matching falling state in one FIFO word.
func (p *PIOStepPort) WriteSteppingPort(bits uint8) {
	p.lastBits = bits
	falling := (bits &^ core.StepMask) | p.restingStep
	word := uint32(bits&core.SteppingMask) | uint32(falling&core.SteppingMask)<<6

	for p.sm.IsTxFIFOFull() {
		// Busy wait - should be very brief
	}
	p.sm.TxPut(word)
}

// ResetStepPins implements core.StepPort. The falling edge is hardware-
// timed by the PIO program, so the software falling edge only needs to act
// if the resting level changed (invert mask reconfiguration).
func (p *PIOStepPort) ResetStepPins(bits uint8) {
	resting := bits & core.StepMask
	if resting == p.restingStep {
		return
	}
	p.restingStep = resting
	p.WriteSteppingPort((p.lastBits &^ core.StepMask) | resting)
}

// SetEnablePin implements core.StepPort.
func (p *PIOStepPort) SetEnablePin(high bool) {
	p.enPin.Set(high)
}
