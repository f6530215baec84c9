package config

// File names searched for in the project root.
const (
	ConfigFileName    = "parklake.yaml"
	ConfigFileNameAlt = "parklake.yml"
)

// EnvPrefix prefixes structured environment overrides:
// PARKLAKE_STORAGE__BUCKET sets storage.bucket.
const EnvPrefix = "PARKLAKE_"

// Defaults returns the base layer of configuration.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":   "data",
		"sql_dir":    "sql",
		"state_path": ".parklake/state.db",

		"log.level":  "info",
		"log.format": "text",

		"catalog.type":     "duckdb",
		"catalog.database": "ducklake.db",
		"catalog.path":     "catalog.ducklake",
		"catalog.alias":    "my_ducklake",

		"storage.region":  "us-east-1",
		"storage.use_ssl": false,

		"nps.page_size":       50,
		"nps.timeout":         "30s",
		"nps.parks_endpoint":  "https://developer.nps.gov/api/v1/parks",
		"nps.alerts_endpoint": "https://developer.nps.gov/api/v1/alerts",

		"pipeline.cron":        "0 2 * * *",
		"pipeline.timezone":    "America/Chicago",
		"pipeline.retries":     2,
		"pipeline.retry_delay": "30s",
		"pipeline.lease_ttl":   "2h",
		"pipeline.curated":     false,

		"validation.layer":            "RAW",
		"validation.fail_threshold":   0,
		"validation.raise_on_failure": false,
		"validation.report_dir":       "data/validation_reports",

		"api.addr": ":8000",
	}
}

// legacyEnv maps the environment variable names used by existing deployments
// to config keys.
var legacyEnv = map[string]string{
	"MINIO_EXTERNAL_URL":  "storage.endpoint",
	"MINIO_BUCKET_NAME":   "storage.bucket",
	"MINIO_ACCESS_KEY":    "storage.access_key",
	"MINIO_SECRET_KEY":    "storage.secret_key",
	"NPS_API_KEY":         "nps.api_key",
	"NPS_PARKS_ENDPOINT":  "nps.parks_endpoint",
	"NPS_ALERTS_ENDPOINT": "nps.alerts_endpoint",
	"PIPELINE_CRON":       "pipeline.cron",
	"PIPELINE_TIMEZONE":   "pipeline.timezone",
}
