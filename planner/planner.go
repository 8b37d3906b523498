// Package planner maintains the upstream queue of motion blocks consumed by
// the motion core. Lines are buffered in a ring, junction speeds are
// limited by a centripetal-acceleration bound at each corner, and a
// reverse/forward lookahead pass maximizes entry speeds under the
// acceleration limit so the step generator never has to stop between
// blocks unnecessarily.
package planner

import (
	"math"

	"stepcore/core"
)

// BlockBufferSize is the block ring capacity.
const BlockBufferSize = 18

// minimumFeedRate keeps degenerate feed commands from planning a zero-speed
// block the stepper could never finish.
const minimumFeedRate = 1.0 // mm/min

// Config holds the machine limits the planner plans against.
type Config struct {
	// StepsPerMM per axis.
	StepsPerMM [core.NumAxes]float64

	// MaxFeedRate per axis, mm/min.
	MaxFeedRate [core.NumAxes]float64

	// Acceleration along the path, mm/s^2.
	Acceleration float64

	// JunctionDeviation sets how much cornering speed is tolerated, mm.
	JunctionDeviation float64
}

// block wraps the core-visible fields with the planner-only state needed
// for lookahead.
type block struct {
	core.Block

	unitVec           [core.NumAxes]float64
	maxEntrySpeedSqr  float64 // junction + nominal bound on entry speed
	nominalLengthFlag bool    // block can reach nominal speed from any entry
}

// Planner is the block ring. The motion core consumes from tail; AddLine
// produces at head. Single-threaded: both sides run in the main loop.
type Planner struct {
	cfg Config

	buf      [BlockBufferSize]block
	head     uint8
	tail     uint8
	nextHead uint8

	// Planned machine position in steps, tracking the head of the queue
	// rather than the executed position.
	position [core.NumAxes]int64

	previousUnitVec         [core.NumAxes]float64
	previousNominalSpeedSqr float64
}

// New returns an empty planner ring for the given machine limits.
func New(cfg Config) *Planner {
	p := &Planner{cfg: cfg}
	p.Reset()
	return p
}

// Reset empties the queue and clears the junction history. Position is
// preserved so a reset mid-session does not lose the machine location.
func (p *Planner) Reset() {
	p.head = 0
	p.tail = 0
	p.nextHead = 1
	p.previousUnitVec = [core.NumAxes]float64{}
	p.previousNominalSpeedSqr = 0
}

// SetPosition teaches the planner the current machine position in mm.
func (p *Planner) SetPosition(target [core.NumAxes]float64) {
	for a := 0; a < core.NumAxes; a++ {
		p.position[a] = int64(math.Round(target[a] * p.cfg.StepsPerMM[a]))
	}
}

func nextIndex(i uint8) uint8 {
	i++
	if i == BlockBufferSize {
		return 0
	}
	return i
}

func prevIndex(i uint8) uint8 {
	if i == 0 {
		return BlockBufferSize - 1
	}
	return i - 1
}

// IsFull reports whether another AddLine would overrun the ring.
func (p *Planner) IsFull() bool {
	return p.nextHead == p.tail
}

// IsEmpty reports whether the queue holds no blocks.
func (p *Planner) IsEmpty() bool {
	return p.head == p.tail
}

// BlockCount returns the number of queued blocks.
func (p *Planner) BlockCount() int {
	if p.head >= p.tail {
		return int(p.head - p.tail)
	}
	return int(BlockBufferSize - p.tail + p.head)
}

// AddLine appends a linear move to the target position (mm) at the given
// feed rate (mm/min). Returns false when the ring is full or the move is
// empty of steps; the caller retries after the stepper drains some blocks.
func (p *Planner) AddLine(target [core.NumAxes]float64, feedRate float64) bool {
	if p.IsFull() {
		return false
	}
	if feedRate < minimumFeedRate {
		feedRate = minimumFeedRate
	}

	b := &p.buf[p.head]
	*b = block{}

	// Target in steps, per-axis deltas, direction bits.
	var targetSteps [core.NumAxes]int64
	var delta [core.NumAxes]float64
	for a := 0; a < core.NumAxes; a++ {
		targetSteps[a] = int64(math.Round(target[a] * p.cfg.StepsPerMM[a]))
		steps := targetSteps[a] - p.position[a]
		if steps < 0 {
			b.Steps[a] = uint32(-steps)
			b.DirectionBits |= dirBit(a)
		} else {
			b.Steps[a] = uint32(steps)
		}
		if b.Steps[a] > b.StepEventCount {
			b.StepEventCount = b.Steps[a]
		}
		delta[a] = float64(steps) / p.cfg.StepsPerMM[a]
	}
	if b.StepEventCount == 0 {
		return false // zero-length move
	}

	b.Millimeters = math.Sqrt(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])
	inverseMM := 1.0 / b.Millimeters

	// Bound the feed by each axis limit, scaled to the path direction.
	speed := feedRate / 60.0
	for a := 0; a < core.NumAxes; a++ {
		b.unitVec[a] = delta[a] * inverseMM
		if b.unitVec[a] != 0 {
			axisLimit := p.cfg.MaxFeedRate[a] / 60.0 * b.Millimeters / math.Abs(delta[a])
			if speed > axisLimit {
				speed = axisLimit
			}
		}
	}
	b.NominalSpeedSqr = speed * speed
	b.Acceleration = p.cfg.Acceleration

	// Junction speed bound at the corner with the previous move, from the
	// junction deviation model: an imagined circular arc of deviation d
	// tangent to both segments limits the centripetal acceleration.
	// An empty queue means the machine is at rest, so the move starts
	// from a standstill regardless of history.
	junctionSpeedSqr := 0.0
	if !p.IsEmpty() {
		cosTheta := -(p.previousUnitVec[0]*b.unitVec[0] +
			p.previousUnitVec[1]*b.unitVec[1] +
			p.previousUnitVec[2]*b.unitVec[2])
		if cosTheta < -0.95 {
			// Nearly straight through: junction speed is only bounded
			// by the neighboring nominal speeds.
			junctionSpeedSqr = math.Min(b.NominalSpeedSqr, p.previousNominalSpeedSqr)
		} else if cosTheta <= 0.95 {
			sinThetaD2 := math.Sqrt(0.5 * (1.0 - cosTheta))
			junctionSpeedSqr = b.Acceleration * p.cfg.JunctionDeviation *
				sinThetaD2 / (1.0 - sinThetaD2)
			junctionSpeedSqr = math.Min(junctionSpeedSqr,
				math.Min(b.NominalSpeedSqr, p.previousNominalSpeedSqr))
		}
		// Sharper than ~160 degrees: full stop at the corner.
	}
	b.maxEntrySpeedSqr = junctionSpeedSqr
	b.EntrySpeedSqr = junctionSpeedSqr

	// A block long enough to reach nominal speed from a standstill can
	// absorb any entry speed; the reverse pass never needs to look past it.
	b.nominalLengthFlag = 2*b.Acceleration*b.Millimeters >= b.NominalSpeedSqr

	p.previousUnitVec = b.unitVec
	p.previousNominalSpeedSqr = b.NominalSpeedSqr
	p.position = targetSteps

	p.head = p.nextHead
	p.nextHead = nextIndex(p.nextHead)

	p.recalculate()
	return true
}

// recalculate runs the reverse then forward lookahead passes over the
// queue, maximizing entry speeds under v^2 = u^2 + 2aL. The tail block's
// entry speed is pinned: the motion core may already be executing it.
func (p *Planner) recalculate() {
	if p.BlockCount() < 2 {
		return
	}

	// Reverse pass: walk from the newest block towards the tail, pulling
	// entry speeds down so each block can decelerate to its successor.
	idx := prevIndex(p.head)
	nextEntrySqr := 0.0 // queue end: assume a stop
	for idx != p.tail {
		b := &p.buf[idx]
		if b.nominalLengthFlag {
			// Can decelerate from max entry to any exit within the
			// block; no need to consult the successor.
			b.EntrySpeedSqr = b.maxEntrySpeedSqr
		} else {
			limit := nextEntrySqr + 2*b.Acceleration*b.Millimeters
			b.EntrySpeedSqr = math.Min(b.maxEntrySpeedSqr, limit)
		}
		nextEntrySqr = b.EntrySpeedSqr
		idx = prevIndex(idx)
	}

	// Forward pass: cap each entry speed by what the previous block can
	// actually accelerate to.
	idx = p.tail
	for {
		next := nextIndex(idx)
		if next == p.head {
			break
		}
		b := &p.buf[idx]
		nb := &p.buf[next]
		reachable := b.EntrySpeedSqr + 2*b.Acceleration*b.Millimeters
		if nb.EntrySpeedSqr > reachable {
			nb.EntrySpeedSqr = reachable
		}
		idx = next
	}
}

func dirBit(axis int) uint8 {
	switch axis {
	case core.XAxis:
		return core.XDirectionBit
	case core.YAxis:
		return core.YDirectionBit
	}
	return core.ZDirectionBit
}

// --- core.PlannerQueue implementation ---

// BlockByIndex returns the block at ring index i, or nil when i is not a
// queued slot.
func (p *Planner) BlockByIndex(i uint8) *core.Block {
	if !p.indexQueued(i) {
		return nil
	}
	return &p.buf[i].Block
}

func (p *Planner) indexQueued(i uint8) bool {
	if p.head == p.tail {
		return false
	}
	if p.tail < p.head {
		return i >= p.tail && i < p.head
	}
	return i >= p.tail || i < p.head
}

// NextBlockIndex maps a ring index to its successor.
func (p *Planner) NextBlockIndex(i uint8) uint8 {
	return nextIndex(i)
}

// CurrentBlock returns the tail block, or nil when the queue is empty.
func (p *Planner) CurrentBlock() *core.Block {
	if p.IsEmpty() {
		return nil
	}
	return &p.buf[p.tail].Block
}

// DiscardCurrentBlock releases the tail block.
func (p *Planner) DiscardCurrentBlock() {
	if !p.IsEmpty() {
		p.tail = nextIndex(p.tail)
	}
}

// TailIndex returns the ring index the motion core should start prepping
// from after a reset.
func (p *Planner) TailIndex() uint8 {
	return p.tail
}
