// Copyright 2025 Takhin Data, Inc.

package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Probe, clear, or tag-invalidate cache entries",
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Fetch a key's current cached value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]any
		if err := doRequest("GET", "/cache/"+url.PathEscape(args[0]), &out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(out)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key from every cache level and invalidate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]any
		if err := doRequest("DELETE", "/cache/"+url.PathEscape(args[0]), &out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(out)
		return nil
	},
}

var cacheInvalidateTagCmd = &cobra.Command{
	Use:   "invalidate-tag <tag>",
	Short: "Invalidate every cache entry carrying the given tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]any
		if err := doRequest("POST", "/cache/invalidate/tag/"+url.PathEscape(args[0]), &out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		printJSON(out)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheGetCmd, cacheDeleteCmd, cacheInvalidateTagCmd)
	rootCmd.AddCommand(cacheCmd)
}
