package core

import "testing"

func TestSegRingEmptyFull(t *testing.T) {
	var r segRing
	r.reset()

	if !r.empty() {
		t.Error("fresh ring not empty")
	}
	if r.full() {
		t.Error("fresh ring reports full")
	}

	// The ring holds SegCap-1 published segments before full.
	published := 0
	for !r.full() {
		r.prepSlot().nStep = uint8(published + 1)
		r.publish()
		published++
		if published > SegCap {
			t.Fatal("ring never filled")
		}
	}
	if published != SegCap-1 {
		t.Errorf("ring held %d segments, want %d", published, SegCap-1)
	}

	// Consume in order.
	for i := 0; i < published; i++ {
		if r.empty() {
			t.Fatal("ring empty before all segments consumed")
		}
		seg := r.pop()
		if seg.nStep != uint8(i+1) {
			t.Errorf("segment %d out of order: nStep=%d", i, seg.nStep)
		}
		r.release()
	}
	if !r.empty() {
		t.Error("ring not empty after draining")
	}
}

func TestSegRingWrapsIndices(t *testing.T) {
	var r segRing
	r.reset()

	// Interleave publish/consume well past one lap.
	for i := 0; i < SegCap*4; i++ {
		r.prepSlot().nStep = uint8(i)
		r.publish()
		if r.empty() {
			t.Fatal("published segment invisible to consumer")
		}
		if got := r.pop().nStep; got != uint8(i) {
			t.Fatalf("iteration %d: popped nStep=%d", i, got)
		}
		r.release()
	}
}

func TestDataRingSizedForInFlightBlocks(t *testing.T) {
	// data_index values referenced by ring segments stay valid because
	// the data ring cycles through SegCap-1 entries: the preparer can
	// never lap an entry that a queued segment still points at.
	idx := uint8(0)
	seen := map[uint8]bool{}
	for i := 0; i < (SegCap-1)*3; i++ {
		idx = nextDataIndex(idx)
		if idx >= SegCap-1 {
			t.Fatalf("data index %d out of range", idx)
		}
		seen[idx] = true
	}
	if len(seen) != SegCap-1 {
		t.Errorf("data ring used %d entries, want %d", len(seen), SegCap-1)
	}
}
