package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/parking-logger/internal/frame"
	"github.com/sweeney/parking-logger/internal/serial"
)

// Status tokens sent by the slot controller firmware.
const (
	statusEmpty    = "Empty"
	statusOccupied = "Fill"
)

var errChecksumMismatch = errors.New("checksum mismatch")

func newPrintLineCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "print-line LINE",
		Short:   "Parse and verify one line and print its fields",
		Example: `  parking-logger print-line 'DATA,3,EMPTY,EMPTY,OCCUPIED,EMPTY,EMPTY,2781'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLine(cmd, args[0])
		},
	}
}

func printLine(cmd *cobra.Command, line string) error {
	out := cmd.OutOrStdout()

	f, err := frame.Parse(line)
	if err != nil {
		fmt.Fprintf(out, "frame:     %v\n", err)
		return err
	}
	fmt.Fprintln(out, "frame:     ok")

	computed := frame.Checksum(f.Covered)
	if !f.Verify() {
		fmt.Fprintf(out, "checksum:  MISMATCH (line says %s, computed %d)\n", f.Checksum, computed)
		return errChecksumMismatch
	}
	fmt.Fprintf(out, "checksum:  ok (%d)\n", computed)

	fields := f.Record.Fields()
	fmt.Fprintf(out, "available: %s\n", fields[0])
	for i, s := range f.Record.Slots() {
		fmt.Fprintf(out, "slot %d:    %s\n", i+1, s)
	}
	return nil
}

func newSimulateCmd() *cobra.Command {
	var (
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "simulate PATTERN...",
		Short: "Print framed lines as the slot controller would send them",
		Long: `Each PATTERN has one character per slot: 1 when a car is present, 0 when
the slot is empty. Every pattern is framed and printed count times, interval
apart, so the output can be piped into a pseudo-terminal for bench testing.`,
		Example: `  parking-logger simulate 00000 00100 01100
  parking-logger simulate --interval 1s --count 5 00100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := make([]string, 0, len(args))
			for _, p := range args {
				line, err := simulateLine(p)
				if err != nil {
					return err
				}
				lines = append(lines, line)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			first := true
			for _, line := range lines {
				for i := 0; i < count; i++ {
					if !first && interval > 0 {
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(interval):
						}
					}
					first = false
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between lines (the controller sends one per second)")
	cmd.Flags().IntVar(&count, "count", 1, "times to send each pattern")
	return cmd
}

// simulateLine frames one occupancy pattern the way the controller does: the
// available count is the number of empty slots.
func simulateLine(pattern string) (string, error) {
	if len(pattern) != frame.SlotCount {
		return "", fmt.Errorf("pattern %q: want %d characters, got %d", pattern, frame.SlotCount, len(pattern))
	}

	slots := make([]string, 0, frame.SlotCount)
	occupied := 0
	for _, c := range pattern {
		switch c {
		case '0':
			slots = append(slots, statusEmpty)
		case '1':
			slots = append(slots, statusOccupied)
			occupied++
		default:
			return "", fmt.Errorf("pattern %q: unexpected %q, want 0 or 1", pattern, c)
		}
	}

	fields := append([]string{strconv.Itoa(frame.SlotCount - occupied)}, slots...)
	return frame.Encode(fields), nil
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serial.ListPorts()
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
