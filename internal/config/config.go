// Package config loads the optional copylibs.yaml project configuration and
// the COPYLIBS_* environment variables into the options struct of a command.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ConfigFileName is the base name of the project config file, looked up in
// the working directory as copylibs.yaml.
const ConfigFileName = "copylibs"

// ParseConfig populates opts from the config file (if one exists), the
// environment and the viper keys bound to command-line flags. Flags take
// precedence over environment variables, which take precedence over the
// config file.
func ParseConfig(opts interface{}) error {
	viper.SetConfigName(ConfigFileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("COPYLIBS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		// It's fine if there is no config file, everything can be set via
		// flags and environment variables.
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(viper.Unmarshal(opts))
}
