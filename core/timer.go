package core

// TimerFreq is the system timebase in ticks per second. All wake times,
// pulse widths, and the step interrupt period are expressed in these ticks.
const TimerFreq = 12000000

// GetTime returns the current system time in timer ticks.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time. Hardware integration feeds the
// counter from its tick source; simulation and tests drive it directly.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromUS converts microseconds to timer ticks.
func TimerFromUS(us uint32) uint32 {
	return us * (TimerFreq / 1000000)
}

// TimerFromMS converts milliseconds to timer ticks.
func TimerFromMS(ms uint32) uint32 {
	return ms * (TimerFreq / 1000)
}

// ProcessTimers latches the clock and dispatches every timer that is due.
// Called from the platform tick loop.
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
