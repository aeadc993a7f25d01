package main

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/dgtctl/internal/dgt"
	"github.com/spf13/cobra"
)

type infoReport struct {
	Port             string `json:"port" yaml:"port"`
	Version          string `json:"version" yaml:"version"`
	SerialNumber     string `json:"serial_number" yaml:"serial_number"`
	LongSerialNumber string `json:"long_serial_number" yaml:"long_serial_number"`
	BatteryStatus    string `json:"battery_status,omitempty" yaml:"battery_status,omitempty"`
	Trademark        string `json:"trademark,omitempty" yaml:"trademark,omitempty"`
	FEN              string `json:"fen" yaml:"fen"`
	ClockVersion     string `json:"clock_version,omitempty" yaml:"clock_version,omitempty"`
}

func (r infoReport) fields() []field {
	return []field{
		{"port", r.Port},
		{"version", r.Version},
		{"serial", r.SerialNumber},
		{"long serial", r.LongSerialNumber},
		{"battery", r.BatteryStatus},
		{"trademark", r.Trademark},
		{"fen", r.FEN},
		{"clock version", r.ClockVersion},
	}
}

func (a *app) infoCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "info [pattern...]",
		Short: "Connect once and print board version, serial numbers and position",
		RunE: func(cmd *cobra.Command, args []string) error {
			connected := make(chan string, 1)
			conn := dgt.AutoConnect(a.patterns(args), a.connectOptions(
				dgt.WithHandler(dgt.EventConnected, func(args ...any) error {
					select {
					case connected <- args[0].(string):
					default:
					}
					return nil
				}),
			)...)
			defer conn.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			select {
			case <-connected:
			case <-time.After(wait):
				return fmt.Errorf("%w: no board within %s", dgt.ErrNotConnected, wait)
			case <-ctx.Done():
				return ctx.Err()
			}

			report, err := collectInfo(ctx, conn)
			if err != nil {
				return err
			}
			text, err := formatDoc(a.output, report, report.fields())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, text)
			return err
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for a board to connect")
	return cmd
}

// collectInfo asks the board for everything info prints. Battery, trademark
// and clock queries are optional: older boards and boards without a clock
// never answer them.
func collectInfo(ctx context.Context, conn *dgt.Connection) (infoReport, error) {
	report := infoReport{Port: conn.Port()}

	v, err := conn.GetVersion(ctx)
	if err != nil {
		return report, fmt.Errorf("version: %w", err)
	}
	report.Version = v.String()

	if report.SerialNumber, err = conn.GetSerialNumber(ctx); err != nil {
		return report, fmt.Errorf("serial number: %w", err)
	}
	if report.LongSerialNumber, err = conn.GetLongSerialNumber(ctx); err != nil {
		return report, fmt.Errorf("long serial number: %w", err)
	}
	b, err := conn.GetBoard(ctx)
	if err != nil {
		return report, fmt.Errorf("board: %w", err)
	}
	report.FEN = b.FEN()

	report.BatteryStatus, _ = conn.GetBatteryStatus(ctx)
	report.Trademark, _ = conn.GetTrademark(ctx)
	if cv, err := conn.GetClockVersion(ctx); err == nil {
		report.ClockVersion = cv.String()
	}
	return report, nil
}
