// Copyright 2025 Takhin Data, Inc.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Force an immediate tier migration pass (HOT/WARM/COLD/BACKUP demotion)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result map[string]any
		if err := doRequest("POST", "/migrate", &result); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
