package core

// Timer represents a scheduled event on the system timebase. Handlers run
// from the timer dispatch context, which stands in for the hardware
// interrupt on host builds.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Handler return values
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// ScheduleTimer adds a timer to the schedule, sorted by wake time.
func ScheduleTimer(t *Timer) {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	insertTimer(t)
}

// CancelTimer removes a timer from the schedule. Removing a timer that is
// not scheduled is a no-op, so handlers may cancel their own timer safely.
func CancelTimer(t *Timer) {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	if timerList == t {
		timerList = t.Next
		t.Next = nil
		return
	}
	for cur := timerList; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return
		}
	}
}

func insertTimer(t *Timer) {
	if timerList == nil || t.WakeTime < timerList.WakeTime {
		t.Next = timerList
		timerList = t
		return
	}

	cur := timerList
	for cur.Next != nil && cur.Next.WakeTime < t.WakeTime {
		cur = cur.Next
	}
	t.Next = cur.Next
	cur.Next = t
}

// NextWakeTime returns the wake time of the earliest scheduled timer.
// Tickless dispatch loops (simulation, host tools) use it to advance the
// clock straight to the next event.
func NextWakeTime() (uint32, bool) {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	if timerList == nil {
		return 0, false
	}
	return timerList.WakeTime, true
}

// TimerDispatch runs all timers due at the current time.
func TimerDispatch() {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	for timerList != nil && timerList.WakeTime <= currentTime {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		result := timer.Handler(timer)

		if result == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}

// ResetScheduler drops every pending timer. Used by subsystem reset and by
// tests that rebuild the world between cases.
func ResetScheduler() {
	is := disableInterrupts()
	timerList = nil
	restoreInterrupts(is)
}
