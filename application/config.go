package application

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/smtprovider/smt-provider/utils"
)

// AppConfig is implemented by the config of each executable.
type AppConfig interface {
	Load(file, encoding string) error
	Save() error
	GetPath() string
}

// CommonConfig holds what the configs of the proof server and the
// client share. Path and Encoding tell where and how the config is
// stored; they are not written to the file.
type CommonConfig struct {
	Path     string        `toml:"-"`
	Encoding string        `toml:"-"`
	Logger   *LoggerConfig `toml:"logger,omitempty"`
}

// NewCommonConfig returns the common part of a config stored at file
// in the given encoding. Only "toml" is supported; an empty encoding
// means toml too.
func NewCommonConfig(file, encoding string, logger *LoggerConfig) *CommonConfig {
	return &CommonConfig{
		Path:     file,
		Encoding: encoding,
		Logger:   logger,
	}
}

// GetPath returns the config's file path.
func (conf *CommonConfig) GetPath() string {
	return conf.Path
}

// Decode reads the file at conf's path into full, the config which
// embeds conf. A key in the file that full has no field for is an
// error, so typos do not silently fall back to defaults.
func (conf *CommonConfig) Decode(full AppConfig) error {
	if err := checkEncoding(conf.Encoding); err != nil {
		return err
	}
	md, err := toml.DecodeFile(conf.Path, full)
	if err != nil {
		return fmt.Errorf("Failed to load config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("Config %s: unknown keys %s", conf.Path, strings.Join(keys, ", "))
	}
	return nil
}

// Encode writes full to conf's path. An existing file is never
// overwritten.
func (conf *CommonConfig) Encode(full AppConfig) error {
	if err := checkEncoding(conf.Encoding); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(full); err != nil {
		return err
	}
	return utils.WriteFile(conf.Path, buf.Bytes(), 0644)
}

func checkEncoding(encoding string) error {
	if encoding != "" && !strings.EqualFold(encoding, "toml") {
		return fmt.Errorf("Unsupported config encoding %q", encoding)
	}
	return nil
}
