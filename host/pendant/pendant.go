// Package pendant dispatches realtime operator commands arriving over a
// serial link onto the motion core control surface. Commands are single
// bytes so they can be acted on mid-cycle without any framing.
package pendant

import (
	"fmt"
	"io"

	"stepcore/core"
	"stepcore/host/serial"
)

// Realtime command bytes.
const (
	CmdCycleStart = '~'
	CmdFeedHold   = '!'
	CmdReport     = '?'
	CmdReset      = 0x18 // ctrl-x
)

// Pendant polls a serial port for realtime command bytes.
type Pendant struct {
	port serial.Port
	sys  *core.System
	st   *core.Stepper

	buf [64]byte
}

// New binds a pendant to a port and the motion core.
func New(port serial.Port, sys *core.System, st *core.Stepper) *Pendant {
	return &Pendant{port: port, sys: sys, st: st}
}

// Poll reads whatever bytes are pending and dispatches them. Call it from
// the main loop; a short port read timeout keeps it from stalling. Returns
// the number of commands handled.
func (p *Pendant) Poll() (int, error) {
	n, err := p.port.Read(p.buf[:])
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("pendant read: %w", err)
	}

	handled := 0
	for _, c := range p.buf[:n] {
		switch c {
		case CmdCycleStart:
			p.st.CycleStart()
		case CmdFeedHold:
			p.st.FeedHold()
		case CmdReset:
			p.st.SystemReset()
		case CmdReport:
			p.writeReport()
		default:
			continue // unknown bytes are ignored
		}
		handled++
	}
	return handled, nil
}

// writeReport emits a one-line position/state report.
func (p *Pendant) writeReport() {
	pos := p.sys.Position()
	fmt.Fprintf(p.port, "<%s|pos:%d,%d,%d>\r\n",
		p.sys.State(), pos[core.XAxis], pos[core.YAxis], pos[core.ZAxis])
}
