//go:build !rp2040 && !rp2350

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"alds-go/diag"
	"alds-go/txq"
	"alds-go/vic"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

// maxService bounds one "service" command so a handler that keeps raising
// itself cannot hang the script.
const maxService = 1000

var (
	errUsage        = errors.New("usage")
	errUnknownCmd   = errors.New("unknown command")
	errUnknownQueue = errors.New("unknown queue")

	simOpts = struct {
		keepGoing bool
	}{}

	simCmd = &cobra.Command{
		Use:   "sim [script]",
		Short: "Run an interrupt table script",
		Long: `Run a script against a simulated interrupt table. Each line is one command,
split like a shell line; '#' starts a comment. Without a script, commands are
read from stdin.

  install <ch> [irq|fiq] [prio|auto|none]   bind a counting handler
  uninstall <ch>
  enable <ch> / disable <ch>
  default <name> / fiq <name>               name the default / FIQ handler
  raise <ch>...                             latch requests
  service [n]                               dispatch up to n requests
  queue <id> <ch> <size> [depth]            transmit queue on a loopback FIFO
  write <id> <text>                         queue text, all or nothing
  drain <id> [n]                            empty the FIFO onto the wire
  retract <id> <n> / discard <id>
  status [all] / json / rings`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return newSim(cmd.OutOrStdout()).Run(in, simOpts.keepGoing)
		},
	}
)

func init() {
	simCmd.Flags().BoolVarP(&simOpts.keepGoing, "keep-going", "k", false, "report failing lines and continue")
}

type simQueue struct {
	q    *txq.Queue
	fifo *txq.Loopback
}

// sim interprets script lines against one table.
type sim struct {
	out    io.Writer
	tbl    *vic.Table
	fires  map[string]int
	queues map[string]simQueue
}

func newSim(out io.Writer) *sim {
	s := &sim{out: out, fires: map[string]int{}, queues: map[string]simQueue{}}
	s.tbl = vic.NewTable(nil, nil)
	s.tbl.SetTrap(func(f vic.Fault) { fmt.Fprintln(s.out, "trap:", f.Error()) })
	return s
}

func (s *sim) counter(name string) vic.Handler {
	return vic.Named(name, func() {
		s.fires[name]++
		fmt.Fprintln(s.out, "fire", name)
	})
}

// Run executes every line of r. A failing line stops the run unless keepGoing
// is set, in which case the first error is returned at the end.
func (s *sim) Run(r io.Reader, keepGoing bool) error {
	sc := bufio.NewScanner(r)
	var first error
	for n := 1; sc.Scan(); n++ {
		err := s.Exec(sc.Text())
		if err == nil {
			continue
		}
		err = fmt.Errorf("line %d: %w", n, err)
		if !keepGoing {
			return err
		}
		fmt.Fprintln(s.out, "error:", err)
		if first == nil {
			first = err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return first
}

func (s *sim) queue(id string) (simQueue, error) {
	q, ok := s.queues[id]
	if !ok {
		return simQueue{}, fmt.Errorf("%w %q", errUnknownQueue, id)
	}
	return q, nil
}

func parsePriority(s string) (vic.Priority, bool, error) {
	switch s {
	case "auto":
		return 0, true, nil
	case "none":
		return vic.NonVectored, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > int(vic.NonVectored) {
		return 0, false, fmt.Errorf("bad priority %q", s)
	}
	return vic.Priority(n), false, nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad count %q", s)
	}
	return n, nil
}

// Exec runs one script line.
func (s *sim) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "install":
		if len(args) < 1 || len(args) > 3 {
			return errUsage
		}
		ch, err := vic.ParseChannel(args[0])
		if err != nil {
			return err
		}
		class := vic.IRQ
		if len(args) > 1 {
			if err := class.UnmarshalText([]byte(args[1])); err != nil {
				return err
			}
		}
		prio := vic.DefaultPriority(ch)
		if len(args) > 2 {
			p, auto, err := parsePriority(args[2])
			if err != nil {
				return err
			}
			prio = p
			if auto {
				prio = s.tbl.HighestFreePriority()
			}
		}
		name := args[0] + "_isr"
		if n := vic.ChannelName(ch); n != "" {
			name = n + "_isr"
		}
		if err := s.tbl.Install(ch, class, prio, s.counter(name)); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "installed", name, "slot", slotText(s.tbl.PriorityOf(ch)))

	case "uninstall", "enable", "disable":
		if len(args) != 1 {
			return errUsage
		}
		ch, err := vic.ParseChannel(args[0])
		if err != nil {
			return err
		}
		switch cmd {
		case "uninstall":
			s.tbl.Uninstall(ch)
		case "enable":
			s.tbl.EnableChannel(ch)
		case "disable":
			s.tbl.DisableChannel(ch)
		}

	case "default", "fiq":
		if len(args) != 1 {
			return errUsage
		}
		if cmd == "default" {
			s.tbl.SetDefaultHandler(s.counter(args[0]))
		} else {
			s.tbl.SetFIQHandler(s.counter(args[0]))
		}

	case "raise":
		if len(args) == 0 {
			return errUsage
		}
		for _, a := range args {
			ch, err := vic.ParseChannel(a)
			if err != nil {
				return err
			}
			s.tbl.Raise(ch)
		}

	case "service":
		limit := maxService
		if len(args) == 1 {
			if limit, err = atoi(args[0]); err != nil {
				return err
			}
		} else if len(args) > 1 {
			return errUsage
		}
		n := 0
		for n < limit && (s.tbl.ServiceFIQ() || s.tbl.Service()) {
			n++
		}
		fmt.Fprintln(s.out, "serviced", n)

	case "queue":
		if len(args) < 3 || len(args) > 4 {
			return errUsage
		}
		ch, err := vic.ParseChannel(args[1])
		if err != nil {
			return err
		}
		size, err := atoi(args[2])
		if err != nil {
			return err
		}
		depth := 0
		if len(args) == 4 {
			if depth, err = atoi(args[3]); err != nil {
				return err
			}
		}
		fifo := txq.NewLoopback(depth)
		q, err := txq.New(s.tbl, txq.Config{ID: args[0], Channel: ch, Auto: true, Store: make([]byte, size), Sink: fifo})
		if err != nil {
			return err
		}
		s.queues[args[0]] = simQueue{q: q, fifo: fifo}
		fmt.Fprintln(s.out, "queue", args[0], "slot", slotText(q.Priority()))

	case "write":
		if len(args) != 2 {
			return errUsage
		}
		sq, err := s.queue(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "wrote", sq.q.TryWrite([]byte(args[1])))

	case "drain":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		sq, err := s.queue(args[0])
		if err != nil {
			return err
		}
		n := -1
		if len(args) == 2 {
			if n, err = atoi(args[1]); err != nil {
				return err
			}
		}
		sq.fifo.Drain(n)
		fmt.Fprintf(s.out, "wire %q\n", sq.fifo.Take())

	case "retract":
		if len(args) != 2 {
			return errUsage
		}
		sq, err := s.queue(args[0])
		if err != nil {
			return err
		}
		n, err := atoi(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, "retracted", sq.q.Retract(n))

	case "discard":
		if len(args) != 1 {
			return errUsage
		}
		sq, err := s.queue(args[0])
		if err != nil {
			return err
		}
		sq.q.Discard()

	case "status":
		all := len(args) == 1 && args[0] == "all"
		return diag.WriteIRQTable(s.out, s.tbl.Snapshot(all))

	case "json":
		b, err := diag.MarshalIRQ(s.tbl.Snapshot(false))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(s.out, "%s\n", b)
		return err

	case "rings":
		ids := make([]string, 0, len(s.queues))
		for id := range s.queues {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := diag.WriteRingStats(s.out, id, s.queues[id].q.Stats().Ring); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("%w %q", errUnknownCmd, cmd)
	}
	return nil
}

func slotText(p vic.Priority) string {
	if p == vic.NonVectored {
		return "none"
	}
	return strconv.Itoa(int(p))
}
