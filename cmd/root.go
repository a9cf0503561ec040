// Package cmd implements the atelier command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Atelier - conversational UI component generation",
	Long: `Atelier turns chat into working UI components.

Describe the component you want; the model answers with code, a
stylesheet, and markup, and atelier renders the result in a sandboxed
canvas. Refine it over further turns, then copy or export the pieces.

Running atelier with no arguments opens the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
