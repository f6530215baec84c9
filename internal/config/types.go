// Package config loads parklake configuration from defaults, parklake.yaml,
// the environment and command-line flags.
package config

import (
	"time"

	"github.com/nomadiq-labs/parklake/internal/lakehouse"
	"github.com/nomadiq-labs/parklake/internal/nps"
	"github.com/nomadiq-labs/parklake/internal/objectstore"
)

// Config holds all configuration.
type Config struct {
	// ProjectRoot anchors every relative path. Set by the loader.
	ProjectRoot string `koanf:"-"`

	DataDir   string `koanf:"data_dir"`
	SQLDir    string `koanf:"sql_dir"`
	StatePath string `koanf:"state_path"`

	Log        LogConfig        `koanf:"log"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Storage    StorageConfig    `koanf:"storage"`
	NPS        NPSConfig        `koanf:"nps"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Validation ValidationConfig `koanf:"validation"`
	API        APIConfig        `koanf:"api"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

// CatalogConfig locates the DuckLake catalog.
type CatalogConfig struct {
	Type     string `koanf:"type"`
	Database string `koanf:"database"`
	Path     string `koanf:"path"`
	Alias    string `koanf:"alias"`
}

// StorageConfig is the S3-compatible bucket holding snapshots.
type StorageConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// NPSConfig configures the upstream API.
type NPSConfig struct {
	APIKey         string        `koanf:"api_key"`
	PageSize       int           `koanf:"page_size"`
	Timeout        time.Duration `koanf:"timeout"`
	ParksEndpoint  string        `koanf:"parks_endpoint"`
	AlertsEndpoint string        `koanf:"alerts_endpoint"`
}

// PipelineConfig controls scheduling, retries and the overlap guard.
type PipelineConfig struct {
	Cron       string        `koanf:"cron"`
	Timezone   string        `koanf:"timezone"`
	Retries    int           `koanf:"retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	LeaseTTL   time.Duration `koanf:"lease_ttl"`
	// Curated enables the curated transform stage.
	Curated bool `koanf:"curated"`
}

// ValidationConfig controls the quality gate.
type ValidationConfig struct {
	Layer          string `koanf:"layer"`
	FailThreshold  int    `koanf:"fail_threshold"`
	RaiseOnFailure bool   `koanf:"raise_on_failure"`
	ReportDir      string `koanf:"report_dir"`
}

// APIConfig configures the query server.
type APIConfig struct {
	Addr string `koanf:"addr"`
}

// Sources returns the logical sources ingested from the upstream API.
// Sources without an endpoint are left out.
func (c NPSConfig) Sources() []nps.Source {
	var out []nps.Source
	if c.ParksEndpoint != "" {
		out = append(out, nps.Source{Name: "parks", Endpoint: c.ParksEndpoint, ObjectName: "parks_data.parquet"})
	}
	if c.AlertsEndpoint != "" {
		out = append(out, nps.Source{Name: "alerts", Endpoint: c.AlertsEndpoint, ObjectName: "alerts_data.parquet"})
	}
	return out
}

// ClientConfig returns the upstream client settings.
func (c NPSConfig) ClientConfig() nps.Config {
	return nps.Config{APIKey: c.APIKey, PageSize: c.PageSize, Timeout: c.Timeout}
}

// ObjectStore returns the object storage settings.
func (c StorageConfig) ObjectStore() objectstore.Config {
	return objectstore.Config{
		Endpoint:  c.Endpoint,
		Bucket:    c.Bucket,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Region:    c.Region,
		UseSSL:    c.UseSSL,
	}
}

// Lakehouse returns the catalog settings. Object storage credentials are
// included when an endpoint is configured.
func (c *Config) Lakehouse(readOnly bool) lakehouse.Config {
	lc := lakehouse.Config{
		Type:        c.Catalog.Type,
		Database:    c.Catalog.Database,
		CatalogPath: c.Catalog.Path,
		DataPath:    c.DataDir,
		Alias:       c.Catalog.Alias,
		ReadOnly:    readOnly,
	}
	if c.Storage.Endpoint != "" {
		lc.S3 = &lakehouse.S3Config{
			Endpoint:  c.Storage.Endpoint,
			AccessKey: c.Storage.AccessKey,
			SecretKey: c.Storage.SecretKey,
			Region:    c.Storage.Region,
			UseSSL:    c.Storage.UseSSL,
		}
	}
	return lc
}
