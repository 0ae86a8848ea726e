package cmd

import (
	"path/filepath"

	"github.com/smtprovider/smt-provider/application"
	"github.com/smtprovider/smt-provider/application/server"
	"github.com/smtprovider/smt-provider/application/testutil"
	"github.com/smtprovider/smt-provider/cli"
	"github.com/smtprovider/smt-provider/protocol"
	"github.com/smtprovider/smt-provider/protocol/provider"
	"github.com/smtprovider/smt-provider/storage"
	"github.com/spf13/cobra"
)

var initCmd = cli.NewInitCommand("the proof server", initRunFunc)

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("cert", "c", false, "Generate self-signed ssl keys/cert with sane defaults")
}

func initRunFunc(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if err := mkConfig(dir); err != nil {
		return err
	}
	if cert, _ := cmd.Flags().GetBool("cert"); cert {
		return testutil.CreateTLSCert(dir)
	}
	return nil
}

func mkConfig(dir string) error {
	file := filepath.Join(dir, "config.toml")
	addrs := []*server.Address{
		{
			ServerAddress: &application.ServerAddress{
				Address: "unix:///tmp/smtprovider.sock",
			},
			AllowUpdates: true,
		},
		{
			ServerAddress: &application.ServerAddress{
				Address:     "tcp://0.0.0.0:3000",
				TLSCertPath: "server.pem",
				TLSKeyPath:  "server.key",
			},
		},
	}
	logger := &application.LoggerConfig{
		EnableStacktrace: true,
		Environment:      "development",
		Path:             "smtserver.log",
	}
	db := &storage.Config{
		Engine: storage.LevelDB,
		Path:   "trees.db",
	}
	policies := &protocol.Policies{
		MaxKeysPerRequest: 1000,
		MaxLeavesPerTree:  1 << 20,
	}

	conf := server.NewConfig(file, "toml", addrs, logger, db,
		provider.DefaultCacheSize, policies)
	conf.MetricsAddress = "127.0.0.1:9100"
	return conf.Save()
}
