// Copyright 2025 Takhin Data, Inc.

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:   "stratumctl",
	Short: "stratumctl - command line tool for managing a stratumd instance",
	Long: `stratumctl is a command line management tool for stratumd, the tiered
cache and storage daemon. It talks to a running instance's admin HTTP API to
inspect statistics, force migration and retention sweeps, and probe or clear
cache entries.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://localhost:8080", "stratumd admin API address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
