// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/stacklok/wftel/pkg/config"
	"github.com/stacklok/wftel/pkg/logger"
	"github.com/stacklok/wftel/pkg/telemetry/sender"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the wavefront-proxy configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Long: `Print the wavefront-proxy section after environment overrides and defaults
have been applied. The output is valid input for --config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out, err := cfg.WithDefaults().MarshalSection()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the wavefront-proxy section without contacting the proxy.

This command checks:
- Required fields (hostname, application, service)
- Port ranges for the metrics, distribution and tracing ports
- Reporting and flush intervals, sampling rate and protocol`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("configuration loading failed: %w", err)
			}

			cfg = cfg.WithDefaults()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			logger.Debugw("configuration validated",
				"hostname", cfg.Hostname,
				"application", cfg.Application,
				"service", cfg.Service)
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "Configuration is valid for %s/%s\n", cfg.Application, cfg.Service); err != nil {
				return err
			}
			return renderEndpointsTable(out, cfg)
		},
	}
}

// renderEndpointsTable prints where each kind of telemetry is sent and how often.
func renderEndpointsTable(w io.Writer, cfg config.ProxyConfig) error {
	d := sender.DescriptorFromConfig(cfg)

	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader([]string{"Telemetry", "Endpoint", "Interval"}),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(3, tw.AlignLeft)),
	)

	rows := [][]string{
		{"metrics", d.MetricsEndpoint(), cfg.ReportingInterval().String()},
		{"distributions", d.DistributionEndpoint(), cfg.ReportingInterval().String()},
		{"spans", d.TracingEndpoint(), cfg.FlushInterval().String()},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
