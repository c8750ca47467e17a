// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stacklok/wftel/pkg/versions"
)

// newVersionCmd creates a new version command
func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version of wftel",
		Long:  `Display detailed version information about wftel, including version number, git commit, build date, and Go version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			if jsonOutput {
				return printJSONVersionInfo(cmd.OutOrStdout(), info)
			}
			printVersionInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version information as JSON")

	return cmd
}

func printVersionInfo(w io.Writer, info versions.VersionInfo) {
	_, _ = fmt.Fprintf(w, "wftel %s\n", info.Version)
	_, _ = fmt.Fprintf(w, "Commit: %s\n", info.Commit)
	_, _ = fmt.Fprintf(w, "Built: %s\n", info.BuildDate)
	_, _ = fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
	_, _ = fmt.Fprintf(w, "Platform: %s\n", info.Platform)
}

func printJSONVersionInfo(w io.Writer, info versions.VersionInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
