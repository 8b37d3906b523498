package core

// Block is one planned linear multi-axis move as seen by the motion core.
// The planner owns block storage and may recompute the velocity profile of
// any block the segment preparer has not checked out yet; everything here is
// read-only on the core side.
type Block struct {
	// Steps is the per-axis step count; StepEventCount is their maximum
	// and the total number of step events the block emits.
	Steps          [NumAxes]uint32
	StepEventCount uint32

	// DirectionBits holds one direction bit per axis in the stepping port
	// layout. A set bit steps the axis in the negative direction.
	DirectionBits uint8

	// Millimeters is the Euclidean path length of the move.
	Millimeters float64

	// Speeds are carried squared (mm/s)^2, the planner's native unit.
	EntrySpeedSqr   float64
	NominalSpeedSqr float64

	// Acceleration in mm/s^2 along the path.
	Acceleration float64
}

// PlannerQueue is the upstream planner contract. Blocks are addressed by
// ring index so the core never holds a pointer across a replan; the block at
// the queue tail is the one currently being executed.
type PlannerQueue interface {
	// BlockByIndex returns the block at ring index i, or nil if the index
	// is unused (pipeline drained).
	BlockByIndex(i uint8) *Block

	// NextBlockIndex maps a ring index to its successor.
	NextBlockIndex(i uint8) uint8

	// CurrentBlock returns the block at the queue tail, or nil when the
	// queue is empty.
	CurrentBlock() *Block

	// DiscardCurrentBlock releases the tail block after the step generator
	// has emitted its last step event.
	DiscardCurrentBlock()
}
