//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"alds-go/diag"
	"alds-go/txq"
	"alds-go/vic"

	"github.com/spf13/cobra"
)

var (
	sendOpts = struct {
		port    string
		baud    int
		ring    int
		frame   int
		timeout time.Duration
		stats   bool
	}{}

	sendCmd = &cobra.Command{
		Use:   "send [file]",
		Short: "Stream a file through a transmit queue to a serial port",
		Long: `Stream a file (stdin without one) through an interrupt-driven transmit queue
whose sink is a serial port. The queue is bound to the uart0 channel of a
host interrupt table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sendOpts.port == "" {
				return fmt.Errorf("--port is required")
			}
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			sink, err := txq.OpenSerial(sendOpts.port, sendOpts.baud, sendOpts.frame)
			if err != nil {
				return err
			}
			defer sink.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			if sendOpts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, sendOpts.timeout)
				defer cancel()
			}
			return send(ctx, cmd.OutOrStdout(), in, sink, sendOpts.ring, sendOpts.stats)
		},
	}
)

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&sendOpts.port, "port", "p", "", "serial port, see 'aldsctl ports'")
	f.IntVarP(&sendOpts.baud, "baud", "b", 115200, "baud rate")
	f.IntVar(&sendOpts.ring, "ring", 256, "ring buffer size in bytes")
	f.IntVar(&sendOpts.frame, "frame", 16, "bytes handed to the port per interrupt")
	f.DurationVarP(&sendOpts.timeout, "timeout", "t", 0, "give up after this long (0: never)")
	f.BoolVarP(&sendOpts.stats, "stats", "s", false, "print queue statistics when done")
}

// drainer is the part of a sink that can wait for the wire.
type drainer interface {
	Drain() error
}

// send copies in through a queue of ring bytes on a fresh table into sink.
func send(ctx context.Context, out io.Writer, in io.Reader, sink txq.Sink, ring int, stats bool) error {
	tbl := vic.NewTable(nil, nil)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go tbl.Run(runCtx)

	q, err := txq.New(tbl, txq.Config{
		ID:       "send",
		Channel:  vic.ChUART0,
		Priority: vic.PrioUART0,
		Store:    make([]byte, ring),
		Sink:     sink,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	buf := make([]byte, 512)
	total := 0
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			w, err := q.Write(ctx, buf[:n])
			total += w
			if err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := q.Flush(ctx); err != nil {
		return err
	}
	if d, ok := sink.(drainer); ok {
		if err := d.Drain(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "sent", total, "bytes")
	if stats {
		return diag.WriteRingStats(out, q.ID(), q.Stats().Ring)
	}
	return nil
}
