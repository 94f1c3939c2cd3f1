package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prompthive",
	Short: "Prompt library backend with guest sessions and AI assistance",
	Long: `PromptHive stores, versions and organizes AI prompts.

Anonymous visitors work in a guest session; their prompts move to their
account when they sign up or sign in. Without a subcommand the HTTP server
is started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serveCmd.RunE,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportCmd)
}
