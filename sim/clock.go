package sim

import (
	"stepcore/core"
)

// Run drives the shared timer scheduler until it has no pending work or
// maxTicks of simulated time have elapsed, calling PrepBuffer on every pass
// the way the firmware main loop does. The clock jumps straight to each
// timer's wake time, so run time is proportional to events, not ticks.
// Returns the number of simulated ticks elapsed.
func Run(st *core.Stepper, maxTicks uint32) uint32 {
	start := core.GetTime()
	for {
		wake, ok := core.NextWakeTime()
		if !ok {
			break
		}
		if wake-start > maxTicks {
			core.SetTime(start + maxTicks)
			break
		}
		core.SetTime(wake)
		core.ProcessTimers()
		st.PrepBuffer()
	}
	return core.GetTime() - start
}

// Seconds converts simulated ticks to seconds on the system timebase.
func Seconds(ticks uint32) float64 {
	return float64(ticks) / float64(core.TimerFreq)
}
