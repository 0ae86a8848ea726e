// Package cli holds the cobra commands shared by the smt-provider
// executables.
package cli

import (
	"fmt"
	"os"

	"github.com/smtprovider/smt-provider/internal"
	"github.com/spf13/cobra"
)

// A RunFunc implements the body of a subcommand.
type RunFunc func(cmd *cobra.Command, args []string) error

// NewRootCommand returns the command every subcommand of an
// executable hangs off. Errors are printed once by Execute, without
// the usage text.
func NewRootCommand(use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// NewInitCommand returns the "init" subcommand, which writes the
// files appName needs into the directory given by --dir.
func NewInitCommand(appName string, runFunc RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file for " + appName + ".",
		Args:  cobra.NoArgs,
		RunE:  runFunc,
	}
	cmd.Flags().StringP("dir", "d", ".", "Location of directory for storing generated files")
	return cmd
}

// NewRunCommand returns the "run" subcommand. The config file is
// read from --config.
func NewRunCommand(appName, long string, runFunc RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a " + appName + " instance.",
		Long:  long,
		Args:  cobra.NoArgs,
		RunE:  runFunc,
	}
	cmd.Flags().StringP("config", "c", "config.toml", "Path to the configuration file")
	return cmd
}

// NewVersionCommand returns the "version" subcommand.
func NewVersionCommand(appName string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + appName + ".",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, internal.Version)
		},
	}
}

// Execute runs rootCmd and exits with a non-zero status if the
// selected subcommand fails.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
