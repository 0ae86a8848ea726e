package server

import (
	"fmt"

	"github.com/smtprovider/smt-provider/application"
	"github.com/smtprovider/smt-provider/protocol"
	"github.com/smtprovider/smt-provider/storage"
	"github.com/smtprovider/smt-provider/utils"
)

// An Address describes a server's connection.
// It makes the server connections configurable
// so that the provider can expose a read-only public address
// next to a local address used by the operator to maintain trees.
//
// Allowing updates has to be specified explicitly for each connection.
// Root and proof requests are allowed by default.
// So, by default, addresses are "read-only".
type Address struct {
	*application.ServerAddress
	AllowUpdates bool `toml:"allow_updates,omitempty"`
}

// A Config contains configuration values
// which are read at initialization time from
// a TOML format configuration file.
type Config struct {
	*application.CommonConfig
	// Database selects the storage engine and its directory.
	Database *storage.Config `toml:"database"`
	// CacheSize is the maximum number of trees kept in memory.
	CacheSize int `toml:"cache_size"`
	// MaxRequestBytes bounds the size of a request.
	MaxRequestBytes int64 `toml:"max_request_bytes,omitempty"`
	// MetricsAddress is the host:port serving /metrics. Metrics are
	// not served if it is empty.
	MetricsAddress string `toml:"metrics_address,omitempty"`
	// Policies limits the work of a single request.
	Policies *protocol.Policies `toml:"policies"`
	// Addresses contains the server's connections configuration.
	Addresses []*Address `toml:"addresses"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new server configuration at the given file
// path with the given config encoding, server addresses, logger
// configuration, database, tree cache size and policies.
func NewConfig(file, encoding string, addrs []*Address,
	logConfig *application.LoggerConfig, db *storage.Config,
	cacheSize int, policies *protocol.Policies) *Config {
	var conf = Config{
		CommonConfig: application.NewCommonConfig(file, encoding, logConfig),
		Database:     db,
		CacheSize:    cacheSize,
		Policies:     policies,
		Addresses:    addrs,
	}

	return &conf
}

// Load initializes a server's configuration from the given file
// using the given encoding. Relative paths of the TLS certificate
// files, the log file and the database are resolved against the
// directory of the config file.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	if err := conf.Decode(conf); err != nil {
		return err
	}
	if conf.Database == nil || conf.Database.Path == "" {
		return fmt.Errorf("Config %s: missing database path", file)
	}
	if conf.Policies == nil {
		conf.Policies = new(protocol.Policies)
	}
	if len(conf.Addresses) == 0 {
		return fmt.Errorf("Config %s: no addresses", file)
	}

	// also update path for TLS cert files
	for _, addr := range conf.Addresses {
		if addr.ServerAddress == nil {
			return fmt.Errorf("Config %s: empty address", file)
		}
		if addr.TLSCertPath != "" {
			addr.TLSCertPath = utils.ResolvePath(addr.TLSCertPath, file)
		}
		if addr.TLSKeyPath != "" {
			addr.TLSKeyPath = utils.ResolvePath(addr.TLSKeyPath, file)
		}
	}
	conf.Database.Path = utils.ResolvePath(conf.Database.Path, file)
	// logger config
	if conf.Logger != nil && conf.Logger.Path != "" {
		conf.Logger.Path = utils.ResolvePath(conf.Logger.Path, file)
	}

	return nil
}

// Save writes a server's configuration.
func (conf *Config) Save() error {
	return conf.Encode(conf)
}
