// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the wftel command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/wftel/pkg/config"
	"github.com/stacklok/wftel/pkg/logger"
)

// NewRootCmd creates a new root command for the wftel CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "wftel",
		DisableAutoGenTag: true,
		Short:             "Serve HTTP traffic instrumented through a Wavefront proxy",
		Long: `wftel configures metrics and tracing against a Wavefront proxy and serves
HTTP traffic instrumented with them.

The proxy is described by the wavefront-proxy section of the configuration
file. Every field can be overridden with a WAVEFRONT_PROXY_<FIELD> environment
variable, for example WAVEFRONT_PROXY_HOSTNAME or WAVEFRONT_PROXY_TRACINGPORT.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Initialize()
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	err = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		logger.Errorf("Error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// loadConfig reads the wavefront-proxy section from the --config file and the
// environment. Defaults are not applied.
func loadConfig() (config.ProxyConfig, error) {
	configPath := viper.GetString("config")
	if configPath != "" {
		logger.Debugf("Loading configuration from: %s", configPath)
	} else {
		logger.Debugf("No configuration file specified, reading the environment only")
	}
	return config.NewLoader(configPath).Load()
}
