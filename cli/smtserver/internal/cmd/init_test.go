package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smtprovider/smt-provider/application/server"
)

func TestMkConfig(t *testing.T) {
	dir := t.TempDir()
	RootCmd.SetArgs([]string{"init", "--dir", dir, "--cert"})
	if err := RootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	conf := new(server.Config)
	if err := conf.Load(filepath.Join(dir, "config.toml"), "toml"); err != nil {
		t.Fatal(err)
	}
	if conf.Database.Path != filepath.Join(dir, "trees.db") {
		t.Error("Expect the database path to be resolved, got", conf.Database.Path)
	}
	if len(conf.Addresses) != 2 || !conf.Addresses[0].AllowUpdates {
		t.Fatal("Unexpected addresses")
	}
	if conf.Addresses[1].TLSCertPath != filepath.Join(dir, "server.pem") {
		t.Error("Expect the certificate path to be resolved, got", conf.Addresses[1].TLSCertPath)
	}
	if conf.Policies.MaxKeysPerRequest == 0 {
		t.Error("Expect default policies")
	}

	if _, err := os.Stat(conf.Addresses[1].TLSKeyPath); err != nil {
		t.Error("Expect the TLS key to be generated:", err)
	}

	serv, err := server.NewProofServer(conf)
	if err != nil {
		t.Fatal(err)
	}
	serv.Shutdown()
}
