// Copyright 2025 Takhin Data, Inc.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Manage retention policy enforcement",
}

var retentionEnforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Force an immediate retention sweep across every configured policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result map[string]any
		if err := doRequest("POST", "/retention/enforce", &result); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(result)
		return nil
	},
}

func init() {
	retentionCmd.AddCommand(retentionEnforceCmd)
	rootCmd.AddCommand(retentionCmd)
}
