package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/dgtctl/internal/config"
	"github.com/danmuck/dgtctl/internal/dgt"
	"github.com/danmuck/dgtctl/internal/logging"
	"github.com/danmuck/dgtctl/internal/transport"
	"github.com/spf13/cobra"
)

type app struct {
	out io.Writer

	// Overridable in tests.
	opener     transport.Opener
	discoverer transport.Discoverer

	cfgFile     string
	ports       []string
	statusAddr  string
	statusToken string
	output      string

	cfg config.Config
}

func newApp(out io.Writer) *app {
	return &app{
		out:        out,
		discoverer: transport.DefaultDiscoverer(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dgtctl",
		Short: "Talk to DGT electronic chessboards over serial",
		Long: `dgtctl connects to a DGT e-board on the first serial device matching the
configured patterns, reconnects when it is unplugged, and reports board,
clock and device information.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			return a.loadConfig()
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "TOML config file")
	flags.StringSliceVarP(&a.ports, "port", "p", nil, "device path or glob, repeatable (overrides config ports)")
	flags.StringVar(&a.statusAddr, "status-addr", "", "serve the HTTP status API on this address")
	flags.StringVar(&a.statusToken, "status-token", "", "bearer token required by the status API")
	flags.StringVarP(&a.output, "output", "o", "text", "output format: text, json, yaml")

	root.AddCommand(
		a.watchCmd(),
		a.infoCmd(),
		a.portsCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg := config.Default()
	if a.cfgFile != "" {
		loaded, err := config.Load(a.cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if len(a.ports) > 0 {
		cfg.Ports = a.ports
	}
	if a.statusAddr != "" {
		cfg.StatusAddr = a.statusAddr
	}
	if a.statusToken != "" {
		cfg.StatusToken = a.statusToken
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	switch strings.ToLower(a.output) {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}
	a.cfg = cfg
	return nil
}

func (a *app) connectOptions(extra ...dgt.Option) []dgt.Option {
	opener := a.opener
	if opener == nil {
		opener = transport.SerialOpener{BaudRate: a.cfg.BaudRate}
	}
	opts := []dgt.Option{
		dgt.WithOpener(opener),
		dgt.WithDiscoverer(a.discoverer),
		dgt.WithConfig(a.cfg.Session),
	}
	return append(opts, extra...)
}

// patterns returns positional args when given, else the configured ports.
func (a *app) patterns(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return a.cfg.Ports
}
