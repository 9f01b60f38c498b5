package config

import (
	"slices"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/samber/oops"

	"github.com/materials-data-facility/connect/internal/constants"
)

//nolint:mnd
var defaultConfig = map[string]any{
	"HTTP": map[string]any{"Address": ":8080", "ShutdownTimeout": "5s"},
	"AWS":  map[string]any{"Region": "us-east-1"},
	"Globus": map[string]any{
		"AuthURL":  "https://auth.globus.org",
		"FlowsURL": "https://flows.globus.org",
		"FlowFile": "minimus_flow.json",
		"Timeout":  "30s",
	},
	"Destination": map[string]any{
		"BasePath": "/mdf_connect/prod/data/",
		"TestPath": "/mdf_connect/test/data/",
	},
	"Retry": map[string]any{"Attempts": 5, "Delay": "100ms", "MaxDelay": "5s"},
}

func LoadConfig(opts ...commoncfg.Option) (*Config, error) {
	cfg := &Config{}

	// Later options override earlier ones, so callers can replace the
	// default search paths.
	options := make([]commoncfg.Option, 0, 3+len(opts))
	options = append(options,
		commoncfg.WithDefaults(defaultConfig),
		commoncfg.WithPaths(
			constants.DefaultConfigPath1,
			constants.DefaultConfigPath2,
			".",
		),
		commoncfg.WithEnvOverride(constants.APIName),
	)

	options = append(options, opts...)

	loader := commoncfg.NewLoader(
		cfg,
		options...,
	)

	err := loader.LoadConfig()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to load config")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to validate config")
	}

	return cfg, nil
}

// LoadForBuild loads the config and stamps it with the build version.
func LoadForBuild(buildInfo string, opts ...commoncfg.Option) (*Config, error) {
	cfg, err := LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	err = commoncfg.UpdateConfigVersion(&cfg.BaseConfig, buildInfo)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to update the version configuration")
	}

	return cfg, nil
}

// IsCurator reports whether userID may curate submissions.
func (c *Config) IsCurator(userID string) bool {
	return slices.Contains(c.Curators, userID)
}
