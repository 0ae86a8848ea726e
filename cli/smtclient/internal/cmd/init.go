package cmd

import (
	"path/filepath"

	"github.com/smtprovider/smt-provider/application/client"
	"github.com/smtprovider/smt-provider/cli"
	"github.com/spf13/cobra"
)

var initCmd = cli.NewInitCommand("the proof server client", mkConfig)

func init() {
	RootCmd.AddCommand(initCmd)
}

// mkConfig writes a config matching the one of "smtserver init".
func mkConfig(cmd *cobra.Command, args []string) error {
	dir := cmd.Flag("dir").Value.String()
	file := filepath.Join(dir, "config.toml")
	conf := client.NewConfig(file, "toml", "tcp://127.0.0.1:3000",
		"unix:///tmp/smtprovider.sock", "server.pem")
	return conf.Save()
}
