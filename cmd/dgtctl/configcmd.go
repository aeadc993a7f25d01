package main

import (
	"fmt"

	"github.com/danmuck/dgtctl/internal/config"
	"github.com/spf13/cobra"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check dgtctl configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a starter config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.out, "wrote %s\n", args[0])
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Parse and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fields := []field{
				{"ports", fmt.Sprint(cfg.Ports)},
				{"baud rate", fmt.Sprint(cfg.BaudRate)},
				{"query timeout", cfg.Session.QueryTimeout.String()},
				{"backoff", fmt.Sprintf("%s x%.1f up to %s", cfg.Session.Backoff.InitialDelay, cfg.Session.Backoff.Multiplier, cfg.Session.Backoff.MaxDelay)},
				{"status addr", cfg.StatusAddr},
			}
			_, err = fmt.Fprint(a.out, formatFields(fields))
			return err
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
