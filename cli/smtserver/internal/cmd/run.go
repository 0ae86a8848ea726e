package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/smtprovider/smt-provider/application/server"
	"github.com/smtprovider/smt-provider/cli"
	"github.com/spf13/cobra"
)

var runCmd = cli.NewRunCommand("proof server",
	`Run a proof server instance.

This will look for config files with default names
in the current directory if not specified differently.
Send SIGUSR2 to reload the policies from the config file.
	`, run)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("pid", "p", false, "Write down the process id to smtserver.pid in the current working directory")
}

func run(cmd *cobra.Command, args []string) error {
	confPath, _ := cmd.Flags().GetString("config")
	if pid, _ := cmd.Flags().GetBool("pid"); pid {
		if err := writePID("smtserver.pid"); err != nil {
			return err
		}
		defer os.Remove("smtserver.pid")
	}

	conf := &server.Config{}
	if err := conf.Load(confPath, "toml"); err != nil {
		return err
	}
	serv, err := server.NewProofServer(conf)
	if err != nil {
		return err
	}

	// run the server until receiving an interrupt signal
	if err := serv.Run(conf.Addresses); err != nil {
		serv.Shutdown()
		return err
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	return serv.Shutdown()
}

func writePID(file string) error {
	if err := os.WriteFile(file, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("Cannot write pid file: %w", err)
	}
	return nil
}
