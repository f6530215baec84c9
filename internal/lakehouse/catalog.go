// Package lakehouse manages the DuckLake catalog: attaching it, creating the
// layer schemas and loading raw snapshots into tables.
package lakehouse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nomadiq-labs/parklake/pkg/adapter"
	"github.com/nomadiq-labs/parklake/pkg/core"

	_ "github.com/nomadiq-labs/parklake/pkg/adapters/duckdb" // registers the duckdb adapter
)

// Layer schemas.
const (
	SchemaRaw     = "RAW"
	SchemaStaged  = "STAGED"
	SchemaCurated = "CURATED"
)

// Schemas lists the layers in flow order.
var Schemas = []string{SchemaRaw, SchemaStaged, SchemaCurated}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Execer runs a statement that returns no rows.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// S3Config holds the credentials the engine uses to read from object storage.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Config describes where the catalog lives.
type Config struct {
	// Type is the adapter type, "duckdb" unless overridden.
	Type string
	// Database is the engine database file. Empty means in-memory.
	Database string
	// CatalogPath is the DuckLake metadata catalog.
	CatalogPath string
	// DataPath is where DuckLake writes table data files.
	DataPath string
	// Alias is the name the catalog is attached under.
	Alias    string
	ReadOnly bool
	S3       *S3Config
}

// Catalog is an attached DuckLake catalog. It is acquired at the start of a
// run and closed at its end.
type Catalog struct {
	adapter.Adapter
	cfg    Config
	logger *slog.Logger
}

// AdapterConfig builds the adapter configuration: ducklake and httpfs
// extensions plus an S3 secret when object storage is configured.
func AdapterConfig(cfg Config) core.AdapterConfig {
	typ := cfg.Type
	if typ == "" {
		typ = "duckdb"
	}
	params := map[string]any{
		"extensions": []any{"ducklake", "httpfs"},
	}
	if cfg.S3 != nil && cfg.S3.Endpoint != "" {
		region := cfg.S3.Region
		if region == "" {
			region = "us-east-1"
		}
		params["secrets"] = []any{map[string]any{
			"name":      "parklake_s3",
			"type":      "s3",
			"key_id":    cfg.S3.AccessKey,
			"secret":    cfg.S3.SecretKey,
			"region":    region,
			"endpoint":  stripScheme(cfg.S3.Endpoint),
			"url_style": "path",
			"use_ssl":   cfg.S3.UseSSL,
		}}
	}
	return core.AdapterConfig{Type: typ, Path: cfg.Database, Params: params}
}

// Open connects the engine, attaches the catalog and ensures every layer
// schema exists.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	acfg := AdapterConfig(cfg)
	adp, err := adapter.NewAdapter(acfg, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, acfg); err != nil {
		return nil, fmt.Errorf("failed to connect catalog engine: %w", err)
	}

	cat := &Catalog{Adapter: adp, cfg: cfg, logger: logger}
	if err := cat.attach(ctx); err != nil {
		_ = adp.Close()
		return nil, err
	}
	if !cfg.ReadOnly {
		if err := CreateSchemas(ctx, adp, Schemas); err != nil {
			_ = adp.Close()
			return nil, err
		}
	}
	return cat, nil
}

func (c *Catalog) attach(ctx context.Context) error {
	stmts, err := AttachStatements(c.cfg)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to attach catalog %s: %w", c.cfg.CatalogPath, err)
		}
	}
	c.logger.Info("attached catalog", "catalog", c.cfg.CatalogPath, "data_path", c.cfg.DataPath, "alias", c.alias())
	return nil
}

func (c *Catalog) alias() string {
	if c.cfg.Alias == "" {
		return "my_ducklake"
	}
	return c.cfg.Alias
}

// AttachStatements returns the ATTACH and USE statements for cfg.
func AttachStatements(cfg Config) ([]string, error) {
	alias := cfg.Alias
	if alias == "" {
		alias = "my_ducklake"
	}
	if err := ValidateIdent(alias); err != nil {
		return nil, err
	}
	if cfg.CatalogPath == "" {
		return nil, fmt.Errorf("catalog path is empty")
	}

	opts := []string{"DATA_PATH " + Quote(cfg.DataPath)}
	if cfg.ReadOnly {
		opts = append(opts, "READ_ONLY")
	}
	return []string{
		fmt.Sprintf("ATTACH %s AS %s (%s)", Quote("ducklake:"+cfg.CatalogPath), alias, strings.Join(opts, ", ")),
		"USE " + alias,
	}, nil
}

// CreateSchemas creates each schema if it does not exist.
func CreateSchemas(ctx context.Context, db Execer, schemas []string) error {
	for _, schema := range schemas {
		if err := ValidateIdent(schema); err != nil {
			return err
		}
		if err := db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}
	return nil
}

// ValidateIdent rejects anything that is not a plain SQL identifier.
func ValidateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// Quote renders s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func stripScheme(endpoint string) string {
	if i := strings.Index(endpoint, "://"); i >= 0 {
		return endpoint[i+3:]
	}
	return endpoint
}
