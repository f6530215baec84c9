// Package snapshot handles the timestamped columnar dumps that land in object
// storage: naming, resolving the newest file per source, and parquet encoding.
package snapshot

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the second-resolution UTC stamp embedded in snapshot keys.
// Fixed width, so lexicographic and chronological order agree.
const TimestampLayout = "2006-01-02 15:04:05"

// Extension is the file extension of every snapshot.
const Extension = ".parquet"

var refPattern = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\.parquet$`)

// dataMarker separates the source from the rest of a snapshot name.
const dataMarker = "_data_"

// Ref identifies one snapshot file: the key it was found under, the logical
// source it belongs to and the moment it was captured.
type Ref struct {
	Key        string
	Source     string
	CapturedAt time.Time
}

// Name returns the base name of the snapshot without its extension.
func (r Ref) Name() string {
	return strings.TrimSuffix(path.Base(r.Key), Extension)
}

// Table returns the raw table name the snapshot loads into.
func (r Ref) Table() string {
	return TableName(r.Source)
}

// TableName maps a logical source to its catalog table name.
func TableName(source string) string {
	return strings.ToUpper(source)
}

// TimestampedName appends the UTC capture stamp to base before its extension:
// "parks_data.parquet" becomes "parks_data_2024-06-01 00:00:00.parquet".
func TimestampedName(base string, at time.Time) string {
	stamp := at.UTC().Format(TimestampLayout)
	ext := path.Ext(base)
	if ext == "" {
		return base + "_" + stamp
	}
	return strings.TrimSuffix(base, ext) + "_" + stamp + ext
}

// ParseRef parses a snapshot key of the form <source>[_data]_<stamp>.parquet.
// The source is everything before the first "_data_" marker, or before the
// stamp when there is no marker.
func ParseRef(key string) (Ref, error) {
	base := path.Base(key)
	m := refPattern.FindStringSubmatch(base)
	if m == nil {
		return Ref{}, fmt.Errorf("not a snapshot key: %q", key)
	}
	source := m[1]
	if i := strings.Index(base, dataMarker); i >= 0 {
		source = base[:i]
	}
	if source == "" {
		return Ref{}, fmt.Errorf("not a snapshot key: %q", key)
	}
	at, err := time.ParseInLocation(TimestampLayout, m[2], time.UTC)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid capture time in %q: %w", key, err)
	}
	return Ref{Key: key, Source: source, CapturedAt: at}, nil
}

// SelectLatest groups keys by source and keeps the newest snapshot of each.
// Equal capture times are broken by the greater full key. The result is
// sorted by source and does not depend on input order. Keys that are not
// snapshot names are returned in skipped.
func SelectLatest(keys []string) (latest []Ref, skipped []string) {
	newest := make(map[string]Ref)
	for _, key := range keys {
		ref, err := ParseRef(key)
		if err != nil {
			skipped = append(skipped, key)
			continue
		}
		cur, ok := newest[ref.Source]
		if !ok || newer(ref, cur) {
			newest[ref.Source] = ref
		}
	}

	latest = make([]Ref, 0, len(newest))
	for _, ref := range newest {
		latest = append(latest, ref)
	}
	sort.Slice(latest, func(i, j int) bool {
		return latest[i].Source < latest[j].Source
	})
	sort.Strings(skipped)
	return latest, skipped
}

func newer(a, b Ref) bool {
	if !a.CapturedAt.Equal(b.CapturedAt) {
		return a.CapturedAt.After(b.CapturedAt)
	}
	return a.Key > b.Key
}

// Putter stores an object under a key.
type Putter interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Upload stores data under the timestamped form of base and returns the key.
// A second upload of the same base within one second reuses the key and
// the store's same-key semantics apply.
func Upload(ctx context.Context, store Putter, data []byte, base string, now time.Time) (string, error) {
	key := TimestampedName(base, now)
	if err := store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}
	return key, nil
}
