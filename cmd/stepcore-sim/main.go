// stepcore-sim runs a move program through the full motion pipeline
// (planner -> segment preparer -> step generator) against the simulated
// step port and reports what the steppers would have done.
//
// With -device, a serial pendant can inject realtime commands (~ ! ? and
// ctrl-x) while the simulation runs.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"stepcore/config"
	"stepcore/core"
	"stepcore/host/pendant"
	"stepcore/host/serial"
	"stepcore/planner"
	"stepcore/sim"
)

var (
	configPath  = flag.String("config", "", "Machine config JSON (defaults built in)")
	programPath = flag.String("program", "", "Move program file (X.. Y.. Z.. F.. per line)")
	device      = flag.String("device", "", "Serial device for a realtime pendant (optional)")
	verbose     = flag.Bool("verbose", false, "Trace each parsed move")
)

// chunkTicks is how much simulated time passes between pendant polls.
const chunkTicks = core.TimerFreq / 100 // 10 ms

type move struct {
	target [core.NumAxes]float64
	feed   float64 // mm/min
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fatalf("read config: %v", err)
		}
		cfg, err = config.Load(data)
		if err != nil {
			fatalf("%v", err)
		}
	}

	if *programPath == "" {
		fatalf("no -program given")
	}
	moves, err := loadProgram(*programPath)
	if err != nil {
		fatalf("%v", err)
	}
	if len(moves) == 0 {
		fatalf("program is empty")
	}

	sys := core.NewSystem()
	settings := cfg.Settings()
	pl := planner.New(cfg.PlannerConfig())
	port := sim.NewPort(settings.InvertMask)
	st := core.NewStepper(sys, &settings, pl, port)
	st.Init()

	var pend *pendant.Pendant
	if *device != "" {
		sp, err := serial.Open(serial.DefaultConfig(*device))
		if err != nil {
			fatalf("%v", err)
		}
		defer sp.Close()
		pend = pendant.New(sp, sys, st)
	}

	queued := 0
	for _, m := range moves {
		if !pl.AddLine(m.target, m.feed) {
			// Ring full: the rest of the program would be streamed in a
			// real session. Keep the simulation simple and stop here.
			fmt.Fprintf(os.Stderr, "planner full after %d moves; truncating program\n", queued)
			break
		}
		if *verbose {
			fmt.Printf("queued X%.3f Y%.3f Z%.3f F%.1f\n",
				m.target[0], m.target[1], m.target[2], m.feed)
		}
		queued++
	}

	st.BlocksQueued()
	st.CycleStart()

	var elapsed uint32
	for {
		elapsed += sim.Run(st, chunkTicks)
		if pend != nil {
			if _, err := pend.Poll(); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}
		if _, pending := core.NextWakeTime(); !pending {
			break
		}
	}
	if sys.TestExec(core.ExecCycleStop) {
		st.CycleStopped()
	}

	pos := sys.Position()
	fmt.Printf("moves executed:  %d\n", queued)
	fmt.Printf("step pulses:     X=%d Y=%d Z=%d\n",
		port.StepCounts[core.XAxis], port.StepCounts[core.YAxis], port.StepCounts[core.ZAxis])
	fmt.Printf("travel (steps):  X=%d Y=%d Z=%d\n",
		port.Travel[core.XAxis], port.Travel[core.YAxis], port.Travel[core.ZAxis])
	fmt.Printf("position:        [%d %d %d]\n", pos[0], pos[1], pos[2])
	fmt.Printf("simulated time:  %.3f s (%d ticks)\n", sim.Seconds(elapsed), elapsed)
	fmt.Printf("state:           %s\n", sys.State())
}

// loadProgram parses one move per line: axis words X/Y/Z in mm, F in
// mm/min. Unmentioned axes hold their previous target; feed carries over.
func loadProgram(path string) ([]move, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer f.Close()

	var moves []move
	cur := move{feed: 600}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, word := range strings.Fields(line) {
			if len(word) < 2 {
				return nil, fmt.Errorf("line %d: bad word %q", lineNo, word)
			}
			val, err := strconv.ParseFloat(word[1:], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number in %q", lineNo, word)
			}
			switch word[0] {
			case 'X', 'x':
				cur.target[core.XAxis] = val
			case 'Y', 'y':
				cur.target[core.YAxis] = val
			case 'Z', 'z':
				cur.target[core.ZAxis] = val
			case 'F', 'f':
				cur.feed = val
			default:
				return nil, fmt.Errorf("line %d: unknown word %q", lineNo, word)
			}
		}
		moves = append(moves, cur)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return moves, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
