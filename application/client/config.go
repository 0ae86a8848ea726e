package client

import (
	"fmt"

	"github.com/smtprovider/smt-provider/application"
	"github.com/smtprovider/smt-provider/utils"
)

// Config contains the client's configuration needed to send requests
// to a proof server: the server's addresses for update requests and
// for all other requests, respectively, and optionally the path to a
// PEM certificate which the server's TLS certificate must chain to.
//
// Note that if UpdateAddress is empty, the client falls back to using
// Address for all request types.
type Config struct {
	*application.CommonConfig

	Address       string `toml:"address"`
	UpdateAddress string `toml:"update_address,omitempty"`
	CACertPath    string `toml:"ca_cert,omitempty"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new client configuration at the
// given file path, with the given config encoding,
// server address, update address and CA certificate path.
func NewConfig(file, encoding string, serverAddr, updateAddr,
	caCertPath string) *Config {
	var conf = Config{
		CommonConfig:  application.NewCommonConfig(file, encoding, nil),
		Address:       serverAddr,
		UpdateAddress: updateAddr,
		CACertPath:    caCertPath,
	}

	return &conf
}

// Load initializes a client's configuration from the given file
// using the given encoding.
// A relative CA certificate path is resolved against the directory
// of the config file.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	if err := conf.Decode(conf); err != nil {
		return err
	}
	if conf.Address == "" {
		return fmt.Errorf("Config %s: missing server address", file)
	}
	if conf.CACertPath != "" {
		conf.CACertPath = utils.ResolvePath(conf.CACertPath, file)
	}
	return nil
}

// Save writes a client's configuration.
func (conf *Config) Save() error {
	return conf.Encode(conf)
}
