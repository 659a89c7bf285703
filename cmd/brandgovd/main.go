package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marca-labs/brandgov/internal/cli"
	"github.com/marca-labs/brandgov/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "brandgovd",
		Short: "Brandgov daemon and CLI",
		Long:  "Brandgov daemon for running the governance API server and managing users",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
