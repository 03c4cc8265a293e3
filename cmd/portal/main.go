package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portal",
		Short: "Web portal for the link shortener",
		Long: `Linkportal serves the link shortener's web portal.

Pages are rendered on the server and pushed to a thin browser client
over WebSocket. Signed-out visitors are kept away from account pages
and signed-in users away from the sign-in forms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", ".", "Directory containing portal.toml or portal.json")

	root.AddCommand(
		serveCmd(),
		routesCmd(),
		versionCmd(),
	)
	return root
}
