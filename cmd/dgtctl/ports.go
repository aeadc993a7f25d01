package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type portsReport struct {
	Candidates []string `json:"candidates" yaml:"candidates"`
	Available  []string `json:"available" yaml:"available"`
}

func (a *app) portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports [pattern...]",
		Short: "List the devices a board would be looked for on",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := portsReport{
				Candidates: a.discoverer.Discover(a.patterns(args)),
				Available:  []string{},
			}
			if a.discoverer.PortsList != nil {
				ports, err := a.discoverer.PortsList()
				if err != nil {
					log.Warn().Err(err).Msg("dgtctl.ports enumeration failed")
				} else {
					report.Available = ports
				}
			}

			fields := make([]field, 0, len(report.Candidates)+len(report.Available))
			for i, p := range report.Candidates {
				fields = append(fields, field{Key: fmt.Sprintf("candidate %d", i+1), Value: p})
			}
			for _, p := range report.Available {
				fields = append(fields, field{Key: "available", Value: p})
			}
			if len(fields) == 0 {
				fields = append(fields, field{Key: "candidates", Value: ""})
			}
			text, err := formatDoc(a.output, report, fields)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, text)
			return err
		},
	}
}
