// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command agentx starts the conversational agent HTTP server.
//
// Configuration is layered: built-in defaults, then an optional YAML
// config file, then environment variables. Optional backends degrade
// gracefully: without Redis the in-process memory store is used,
// without Weaviate document search is disabled, without a search API
// key web search is disabled.
//
// # Usage
//
//	# Build
//	go build -o agentx ./cmd/agentx
//
//	# Run with defaults
//	./agentx serve
//
//	# Run with a config file
//	./agentx serve --config ./agentx.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "agentx",
		Short: "Conversational task-automation agent",
		Long: "agentx serves a conversational agent that resolves intents, " +
			"dispatches tools (tasks, documents, web search, charts, math), " +
			"and composes grounded answers.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the agentx version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "agentx", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
