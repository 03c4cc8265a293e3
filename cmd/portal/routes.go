package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/linkportal/pkg/authguard"
	"github.com/vango-dev/linkportal/pkg/portal"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Print the portal's routes in matching order, with the component each
mounts and who may visit it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoutes(cmd.OutOrStdout())
		},
	}
}

func printRoutes(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tCOMPONENT\tACCESS\tTITLE")
	for _, def := range portal.Routes() {
		access := "public"
		switch {
		case def.RequiresAuth:
			access = "signed in"
		case def.MetaFlag(authguard.MetaGuestOnly):
			access = "guests"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Path, def.Component, access, def.Title)
	}
	return w.Flush()
}
