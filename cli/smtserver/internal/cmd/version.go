package cmd

import (
	"github.com/smtprovider/smt-provider/cli"
)

var versionCmd = cli.NewVersionCommand("smtserver")

func init() {
	RootCmd.AddCommand(versionCmd)
}
