package config

import (
	"slices"

	"github.com/spf13/viper"
)

// TenderlyConfig authenticates the simulation client.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type TenderlyConfig struct {
	AccessKey   string `mapstructure:"access_key"`   // Secret: Tenderly API access key
	AccountSlug string `mapstructure:"account_slug"` // The Tenderly account
	ProjectSlug string `mapstructure:"project_slug"` // The Tenderly project
}

// EnvConfig is the configuration read from environment variables.
type EnvConfig struct {
	Tenderly TenderlyConfig `mapstructure:"tenderly"`
}

// envBindings maps config keys to the environment variables providing them, in order of
// preference.
var envBindings = map[string][]string{
	"tenderly.access_key":   {"TENDERLY_ACCESS_KEY"},
	"tenderly.account_slug": {"TENDERLY_ACCOUNT_SLUG"},
	"tenderly.project_slug": {"TENDERLY_PROJECT_SLUG"},
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*EnvConfig, error) {
	v := viper.New()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &EnvConfig{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
