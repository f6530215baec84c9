package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MissingError lists required settings that are not set.
type MissingError struct {
	Operation string
	Keys      []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s requires %s", e.Operation, strings.Join(e.Keys, ", "))
}

func requireSet(op string, pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingError{Operation: op, Keys: missing}
}

// RequireStorage checks the settings needed to reach the bucket.
func (c *Config) RequireStorage(op string) error {
	return requireSet(op,
		"storage.endpoint (MINIO_EXTERNAL_URL)", c.Storage.Endpoint,
		"storage.bucket (MINIO_BUCKET_NAME)", c.Storage.Bucket,
	)
}

// RequireIngest checks the settings needed to ingest from the upstream API.
func (c *Config) RequireIngest() error {
	return errors.Join(
		requireSet("ingest", "nps.api_key (NPS_API_KEY)", c.NPS.APIKey),
		c.RequireStorage("ingest"),
	)
}

// Location resolves the scheduler timezone.
func (c PipelineConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
