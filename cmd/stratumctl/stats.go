// Copyright 2025 Takhin Data, Inc.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tier engine, cache, and warmer statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]any
		if err := doRequest("GET", "/stats", &out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(out)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show daemon health status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]any
		if err := doRequest("GET", "/health", &out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}
