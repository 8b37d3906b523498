package core

// Cycle controller. Transitions the system word between idle, queued,
// cycle, hold, and alarm, and drives the stepper wake/idle pair around
// them. All entry points run from the main program or the command layer,
// never from the step interrupt.

// BlocksQueued transitions Idle to Queued when the upstream planner has
// submitted its first block. With auto-start enabled the caller follows up
// with CycleStart immediately.
func (st *Stepper) BlocksQueued() {
	if st.sys.State() == StateIdle {
		st.sys.setState(StateQueued)
	}
}

// CycleStart begins executing queued motion: prime the segment ring once,
// then start the step interrupt.
func (st *Stepper) CycleStart() {
	if st.sys.State() == StateQueued {
		st.sys.setState(StateCycle)
		st.sys.ClearExec(ExecCycleStop)
		st.PrepBuffer()
		st.WakeUp()
	}
}

// FeedHold decelerates to a controlled stop while retaining the plan. The
// block in flight finishes all of its steps under a profile bent to end at
// rest; no new blocks are started. Only meaningful during a cycle.
func (st *Stepper) FeedHold() {
	if st.sys.State() == StateCycle {
		st.sys.setState(StateHold)
		st.sys.autoStart = false
		st.holdOverride()
	}
}

// CycleReinitialize re-arms the system after a feed hold has drained the
// pipeline. If the planner still holds blocks the state returns to Queued,
// awaiting CycleStart; otherwise Idle. The caller is responsible for
// replanning from the hold location via FetchPartialBlock beforehand.
func (st *Stepper) CycleReinitialize() {
	if st.sys.State() != StateHold {
		return
	}
	st.sys.ClearExec(ExecCycleStop)
	st.sys.autoStart = true
	if st.planner.BlockByIndex(st.prepIndex) != nil || st.prepBlock != nil {
		st.sys.setState(StateQueued)
	} else {
		st.sys.setState(StateIdle)
	}
}

// CycleStopped acknowledges an ExecCycleStop raised by the step generator.
// Called by the main program once it has observed the flag; parks the
// state in Idle unless a hold or alarm owns it.
func (st *Stepper) CycleStopped() {
	st.sys.ClearExec(ExecCycleStop)
	if st.sys.State() == StateCycle {
		st.sys.setState(StateIdle)
	}
}

// SystemReset aborts whatever is in flight and returns the controller to
// Idle with a cleared stepper subsystem. Position is retained; the planner
// queue is the caller's to flush.
func (st *Stepper) SystemReset() {
	st.GoIdle()
	st.Reset()
	st.sys.ClearExec(ExecCycleStop)
	if st.sys.State() != StateAlarm {
		st.sys.setState(StateIdle)
	}
}

// Alarm forces an immediate stop: the step timer is cancelled at once,
// position is left at the last emitted step, and the drivers are disabled
// after the idle-lock dwell.
func (st *Stepper) Alarm() {
	st.sys.SetExec(ExecAlarm)
	st.sys.setState(StateAlarm)
	st.GoIdle()
}

// ClearAlarm returns an alarmed system to Idle. State held by the planner
// is untouched; the caller decides whether the plan is still trustworthy.
func (st *Stepper) ClearAlarm() {
	if st.sys.State() == StateAlarm {
		st.sys.ClearExec(ExecAlarm)
		st.sys.setState(StateIdle)
	}
}
