package core

import "math"

// Segment preparer. Runs cooperatively in the main loop whenever a cycle is
// active, checking step events out of the first planner block and slicing
// its velocity profile into fixed-time segments for the step generator. The
// segment buffer holds a handful of tens of milliseconds of motion, so the
// main program only has to come back often enough to refill it.
//
// All profile math is done in step units and seconds. Tracking the exact
// number of steps, time, and pulse phasing across segment boundaries
// explicitly would be prohibitively expensive; instead the step generator's
// counter remainders carry the phasing for free and the preparer only needs
// a cheap approximation of the velocity over each slice.

// PrepBuffer fills the segment ring. Call it on every main-loop pass while
// a cycle is active; it returns when the ring is full, the planner is
// drained, or motion has not started yet.
func (st *Stepper) PrepBuffer() {
	if st.sys.State() == StateQueued {
		return // block until a motion state is issued
	}

	// segStart and segDt span every slice merged into the segment being
	// assembled; segDt is zero until its first slice is taken.
	var segStart, segDt float64
	for !st.ring.full() {
		seg := st.ring.prepSlot()
		seg.flags = 0

		// ---------------------------------------------------------------
		// Phase A: block intake. Bind a planner block and derive the
		// shared data all of its segments execute against.
		if st.prepBlock == nil {
			if st.sys.State() == StateHold {
				// Feed hold: finish the block in flight, start nothing
				// new. The ring drains and the generator flags the stop.
				return
			}
			st.prepBlock = st.planner.BlockByIndex(st.prepIndex)
			if st.prepBlock == nil {
				return // planner drained
			}

			st.dataPrepIndex = nextDataIndex(st.dataPrepIndex)

			if st.prep == prepPartialBlock {
				// The planner reclaimed and recomputed this block
				// mid-execution. Carry the execution progress over to a
				// fresh shared data entry; only the profile is new.
				last := st.prepData
				st.prepData = &st.ring.data[st.dataPrepIndex]

				st.prepData.stepEventsRemaining = last.stepEventsRemaining
				st.prepData.distPerStep = last.distPerStep
				st.prepData.stepPerMM = last.stepPerMM
				st.prepData.acceleration = last.acceleration

				st.prep = prepFreshBlock
			} else {
				st.prepData = &st.ring.data[st.dataPrepIndex]

				b := st.prepBlock
				st.prepData.stepEventsRemaining = float64(b.StepEventCount)
				st.prepData.stepPerMM = float64(b.StepEventCount) / b.Millimeters
				st.prepData.distPerStep = uint32(math.Ceil(InvTimeMultiplier / st.prepData.stepPerMM))
				st.prepData.acceleration = st.prepData.stepPerMM * b.Acceleration
			}

			st.computeProfile()
		}

		seg.dataIndex = st.dataPrepIndex
		pd := st.prepData

		// ---------------------------------------------------------------
		// Phase B: advance through the velocity profile by one time
		// quantum, clamping at ramp junctions. A slice that lands on a
		// junction early gets filled with the following cruise and/or
		// deceleration ramp so segments stay near DTSegment long.
		stepsRemaining, dt := st.advanceProfile()

		// ---------------------------------------------------------------
		// Phase C: segment emission.
		if segDt == 0 {
			segStart = pd.stepEventsRemaining
		}
		if pd.stepEventsRemaining-stepsRemaining <= 0 && stepsRemaining > 0 {
			// No progress is possible (zero rate, zero acceleration).
			// Upstream planner contract violation; bail out rather than
			// spin.
			st.prepBlock = nil
			return
		}

		segDt += dt
		stepsConsumed := segStart - stepsRemaining
		seg.distPerTick = uint32(math.Ceil(
			stepsConsumed / segDt / pd.stepPerMM * (InvTimeMultiplier / ISRTicksPerSecond)))

		if stepsRemaining > 0 {
			nStep := math.Ceil(segStart) - math.Ceil(stepsRemaining)
			if nStep < MinStepsPerSegment {
				// Slice too small to carry a whole step event. Bank the
				// fractional progress and merge it into the next slice;
				// the ceil arithmetic keeps the block total exact.
				pd.stepEventsRemaining = stepsRemaining
				continue
			}
			seg.nStep = uint8(nStep)

			// Trailing ticks covering the fractional step remainder, so
			// the next segment's first pulse keeps uniform spacing.
			phase := math.Ceil((math.Ceil(stepsRemaining) - stepsRemaining) *
				float64(pd.distPerStep) / float64(seg.distPerTick))
			if phase > 255 {
				phase = 255
			}
			seg.nPhaseTick = uint8(phase)
		} else {
			// Block end: execute everything left, no phase correction.
			seg.nStep = uint8(math.Ceil(segStart))
			seg.nPhaseTick = 0
			seg.flags |= segEndOfBlock

			st.prepIndex = st.planner.NextBlockIndex(st.prepIndex)
			st.prepBlock = nil
		}

		segDt = 0
		pd.stepEventsRemaining = stepsRemaining
		st.ring.publish()
	}
}

// computeProfile classifies the prepped block's velocity profile into one of
// the seven shapes (cruise, cruise-deceleration, acceleration-cruise,
// acceleration-only, deceleration-only, trapezoid, triangle) and records it
// in step units on the shared data entry.
func (st *Stepper) computeProfile() {
	b := st.prepBlock
	pd := st.prepData

	pd.currentRate = pd.stepPerMM * math.Sqrt(b.EntrySpeedSqr)

	// Exit speed comes from the next block's entry, or zero at the end of
	// the planner queue.
	exitSpeedSqr := 0.0
	if next := st.planner.BlockByIndex(st.planner.NextBlockIndex(st.prepIndex)); next != nil {
		exitSpeedSqr = next.EntrySpeedSqr
	}
	pd.exitRate = pd.stepPerMM * math.Sqrt(exitSpeedSqr)

	// Profile parameters in mm first; converted to steps below.
	pd.accelerateUntil = b.Millimeters
	if b.EntrySpeedSqr == b.NominalSpeedSqr {
		pd.maximumRate = math.Sqrt(b.NominalSpeedSqr)
		if exitSpeedSqr == b.NominalSpeedSqr { // cruise only
			pd.decelerateAfter = 0
		} else { // cruise-deceleration
			pd.decelerateAfter = (b.NominalSpeedSqr - exitSpeedSqr) / (2 * b.Acceleration)
		}
	} else if exitSpeedSqr == b.NominalSpeedSqr {
		// Acceleration-cruise
		pd.maximumRate = math.Sqrt(b.NominalSpeedSqr)
		pd.decelerateAfter = 0
		pd.accelerateUntil -= (b.NominalSpeedSqr - b.EntrySpeedSqr) / (2 * b.Acceleration)
	} else {
		intersectDist := 0.5 * (b.Millimeters +
			(b.EntrySpeedSqr-exitSpeedSqr)/(2*b.Acceleration))
		if intersectDist > 0 {
			if intersectDist < b.Millimeters { // trapezoid or triangle
				pd.decelerateAfter = (b.NominalSpeedSqr - exitSpeedSqr) / (2 * b.Acceleration)
				if pd.decelerateAfter < intersectDist { // trapezoid
					pd.maximumRate = math.Sqrt(b.NominalSpeedSqr)
					pd.accelerateUntil -= (b.NominalSpeedSqr - b.EntrySpeedSqr) / (2 * b.Acceleration)
				} else { // triangle
					pd.decelerateAfter = intersectDist
					pd.maximumRate = math.Sqrt(2*b.Acceleration*pd.decelerateAfter + exitSpeedSqr)
					pd.accelerateUntil -= pd.decelerateAfter
				}
			} else { // deceleration-only
				pd.maximumRate = math.Sqrt(b.EntrySpeedSqr)
				pd.decelerateAfter = b.Millimeters
			}
		} else { // acceleration-only
			pd.maximumRate = math.Sqrt(exitSpeedSqr)
			pd.decelerateAfter = 0
			pd.accelerateUntil = 0
		}
	}

	pd.maximumRate *= pd.stepPerMM
	pd.accelerateUntil *= pd.stepPerMM
	pd.decelerateAfter *= pd.stepPerMM
}

// advanceProfile simulates one DTSegment quantum through the prepped
// block's profile. Returns the step events still unsliced afterwards and
// the actual slice duration, which only falls short of DTSegment at block
// end.
func (st *Stepper) advanceProfile() (stepsRemaining, dt float64) {
	pd := st.prepData

	stepsRemaining = pd.stepEventsRemaining
	dt = DTSegment

	if stepsRemaining > pd.accelerateUntil { // acceleration ramp
		stepsRemaining -= pd.currentRate*DTSegment +
			pd.acceleration*(0.5*DTSegment*DTSegment)
		if stepsRemaining < pd.accelerateUntil {
			// Ramp ends inside the slice: clamp to the junction and
			// recover the elapsed time from the mean rate.
			stepsRemaining = pd.accelerateUntil
			dt = 2 * (pd.stepEventsRemaining - stepsRemaining) /
				(pd.currentRate + pd.maximumRate)
			pd.currentRate = pd.maximumRate
		} else {
			pd.currentRate += pd.acceleration * DTSegment
		}
	} else if stepsRemaining <= pd.decelerateAfter { // deceleration ramp
		stepsRemaining -= pd.currentRate*DTSegment -
			pd.acceleration*(0.5*DTSegment*DTSegment)
		if stepsRemaining > 0 && pd.currentRate-pd.acceleration*DTSegment > pd.exitRate {
			pd.currentRate -= pd.acceleration * DTSegment
		} else { // block end
			dt = 2 * pd.stepEventsRemaining / (pd.currentRate + pd.exitRate)
			stepsRemaining = 0
		}
	} else { // cruise
		stepsRemaining -= pd.maximumRate * DTSegment
		if stepsRemaining < pd.decelerateAfter {
			stepsRemaining = pd.decelerateAfter
			dt = (pd.stepEventsRemaining - stepsRemaining) / pd.maximumRate
		}
	}

	// The slice ended early at a ramp junction: fill the remainder with
	// the cruise and/or deceleration that follows.
	if dt < DTSegment && stepsRemaining > 0 {
		if stepsRemaining > pd.decelerateAfter { // cruise fill
			last := stepsRemaining
			stepsRemaining -= pd.currentRate * (DTSegment - dt)
			if stepsRemaining < pd.decelerateAfter {
				stepsRemaining = pd.decelerateAfter
				dt += (last - stepsRemaining) / pd.maximumRate
			} else {
				dt = DTSegment
			}
		}

		if stepsRemaining > 0 && stepsRemaining <= pd.decelerateAfter { // deceleration fill
			last := stepsRemaining
			dtRemainder := DTSegment - dt
			stepsRemaining -= dtRemainder *
				(pd.currentRate - 0.5*pd.acceleration*dtRemainder)
			if stepsRemaining > 0 && pd.currentRate-pd.acceleration*dtRemainder > pd.exitRate {
				pd.currentRate -= pd.acceleration * dtRemainder
				dt = DTSegment
			} else { // block end
				stepsRemaining = 0
				dt += 2 * last / (pd.currentRate + pd.exitRate)
			}
		}
	}

	return stepsRemaining, dt
}

// holdOverride bends the prepped block's remaining profile into a stop:
// no further acceleration, cruise until only the distance needed to ramp
// down remains, then decelerate to rest by the block's end.
func (st *Stepper) holdOverride() {
	pd := st.prepData
	if pd == nil || st.prepBlock == nil {
		return
	}

	pd.accelerateUntil = pd.stepEventsRemaining
	pd.maximumRate = pd.currentRate
	pd.exitRate = 0

	decelSteps := pd.currentRate * pd.currentRate / (2 * pd.acceleration)
	if decelSteps > pd.stepEventsRemaining {
		decelSteps = pd.stepEventsRemaining
	}
	pd.decelerateAfter = decelSteps
}

// FetchPartialBlock hands the in-flight planner block back for replanning.
// It reports the path length not yet sliced into segments and whether the
// profile is already decelerating, then unbinds the prep block so the next
// PrepBuffer pass re-enters block intake through the continuation path.
// ok is false when no block is being prepped (nothing to reclaim).
func (st *Stepper) FetchPartialBlock(blockIndex uint8) (mmRemaining float64, isDecelerating bool, ok bool) {
	if st.prepBlock == nil {
		return 0, false, false
	}
	pd := st.prepData

	mmRemaining = pd.stepEventsRemaining / pd.stepPerMM
	isDecelerating = pd.stepEventsRemaining < pd.decelerateAfter

	st.prep = prepPartialBlock
	st.prepBlock = nil
	return mmRemaining, isDecelerating, true
}

// PrepBlockIndex returns the planner ring index of the block being prepped.
func (st *Stepper) PrepBlockIndex() uint8 {
	return st.prepIndex
}

// SetPrepIndex aligns the preparer with the planner's tail after a reset or
// queue flush. Only valid while no cycle is running.
func (st *Stepper) SetPrepIndex(i uint8) {
	st.prepIndex = i
}
