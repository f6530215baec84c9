package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params is the decoded form of adapter.Config.Params.
type Params struct {
	// Extensions are installed and loaded in order, e.g. ducklake, httpfs.
	Extensions []string `mapstructure:"extensions"`
	// Secrets give httpfs access to the object store holding catalog data.
	Secrets []SecretConfig `mapstructure:"secrets"`
	// Settings are applied with SET, in key order.
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig is one S3-style secret.
type SecretConfig struct {
	// Name makes the secret replaceable; unnamed secrets use CREATE SECRET.
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	KeyID    string `mapstructure:"key_id"`
	Secret   string `mapstructure:"secret"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	// URLStyle is "path" for MinIO and "vhost" for AWS.
	URLStyle string `mapstructure:"url_style"`
	UseSSL   *bool  `mapstructure:"use_ssl"`
}

func parseParams(raw map[string]any) (*Params, error) {
	params := &Params{}
	if len(raw) == 0 {
		return params, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	for i, s := range params.Secrets {
		if s.Type == "" {
			return nil, fmt.Errorf("invalid duckdb params: secret %d has no type", i)
		}
	}
	return params, nil
}
