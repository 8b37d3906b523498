package core

// StepPort is the hardware abstraction for the stepping output port and the
// stepper-enable pin. Implementations must be callable from the step
// interrupt: no allocation, no blocking.
//
// All bit arguments are in the stepping port layout (StepMask,
// DirectionMask) with the settings invert mask already applied by the core.
type StepPort interface {
	// WriteSteppingPort latches step and direction bits in one write.
	// Called on the step rising edge.
	WriteSteppingPort(bits uint8)

	// ResetStepPins rewrites only the step lines so they match bits,
	// leaving the direction lines untouched. Called by the pulse
	// falling-edge handler; bits is the invert mask restricted to
	// StepMask.
	ResetStepPins(bits uint8)

	// SetEnablePin drives the stepper-enable pin. The polarity from
	// Settings.InvertStepEnable is already folded in: true means pin high.
	SetEnablePin(high bool)
}
