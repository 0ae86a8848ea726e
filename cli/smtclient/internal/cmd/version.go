package cmd

import (
	"github.com/smtprovider/smt-provider/cli"
)

var versionCmd = cli.NewVersionCommand("smtclient")

func init() {
	RootCmd.AddCommand(versionCmd)
}
