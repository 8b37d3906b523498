package pendant

import (
	"bytes"
	"strings"
	"testing"

	"stepcore/core"
)

// memPort is an in-memory serial.Port.
type memPort struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (p *memPort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *memPort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *memPort) Close() error                { return nil }
func (p *memPort) Flush() error                { p.in.Reset(); return nil }

// stubPlanner keeps one block queued forever so cycle transitions hold.
type stubPlanner struct {
	block core.Block
}

func (p *stubPlanner) BlockByIndex(i uint8) *core.Block { return &p.block }
func (p *stubPlanner) NextBlockIndex(i uint8) uint8     { return i + 1 }
func (p *stubPlanner) CurrentBlock() *core.Block        { return &p.block }
func (p *stubPlanner) DiscardCurrentBlock()             {}

type nullPort struct{}

func (nullPort) WriteSteppingPort(bits uint8) {}
func (nullPort) ResetStepPins(bits uint8)     {}
func (nullPort) SetEnablePin(high bool)       {}

func newPendantRig() (*Pendant, *memPort, *core.System, *core.Stepper) {
	core.ResetScheduler()
	core.SetTime(0)

	sys := core.NewSystem()
	settings := core.DefaultSettings()
	pl := &stubPlanner{block: core.Block{
		Steps:           [core.NumAxes]uint32{100, 0, 0},
		StepEventCount:  100,
		Millimeters:     10,
		NominalSpeedSqr: 100,
		Acceleration:    100,
	}}
	st := core.NewStepper(sys, &settings, pl, nullPort{})

	mp := &memPort{}
	return New(mp, sys, st), mp, sys, st
}

func TestCycleStartAndFeedHoldBytes(t *testing.T) {
	p, mp, sys, st := newPendantRig()
	st.BlocksQueued()

	mp.in.WriteByte(CmdCycleStart)
	n, err := p.Poll()
	if err != nil || n != 1 {
		t.Fatalf("Poll = %d, %v", n, err)
	}
	if sys.State() != core.StateCycle {
		t.Errorf("state = %v, want cycle", sys.State())
	}

	mp.in.WriteByte(CmdFeedHold)
	if _, err := p.Poll(); err != nil {
		t.Fatal(err)
	}
	if sys.State() != core.StateHold {
		t.Errorf("state = %v, want hold", sys.State())
	}
}

func TestResetByte(t *testing.T) {
	p, mp, sys, st := newPendantRig()
	st.BlocksQueued()
	st.CycleStart()

	mp.in.WriteByte(CmdReset)
	if _, err := p.Poll(); err != nil {
		t.Fatal(err)
	}
	if sys.State() != core.StateIdle {
		t.Errorf("state = %v, want idle", sys.State())
	}
	if st.Running() {
		t.Error("stepper still running after reset byte")
	}
}

func TestReportByte(t *testing.T) {
	p, mp, sys, _ := newPendantRig()
	sys.SetPosition([core.NumAxes]int32{12, -3, 0})

	mp.in.WriteByte(CmdReport)
	if _, err := p.Poll(); err != nil {
		t.Fatal(err)
	}

	got := mp.out.String()
	if !strings.Contains(got, "pos:12,-3,0") {
		t.Errorf("report %q missing position", got)
	}
	if !strings.Contains(got, "idle") {
		t.Errorf("report %q missing state", got)
	}
}

func TestUnknownBytesIgnored(t *testing.T) {
	p, mp, sys, _ := newPendantRig()

	mp.in.WriteString("abc\r\n")
	n, err := p.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("handled %d commands from noise", n)
	}
	if sys.State() != core.StateIdle {
		t.Errorf("noise changed state to %v", sys.State())
	}
}

func TestPollOnEmptyPort(t *testing.T) {
	p, _, _, _ := newPendantRig()
	if n, err := p.Poll(); err != nil || n != 0 {
		t.Errorf("Poll on silent port = %d, %v", n, err)
	}
}
