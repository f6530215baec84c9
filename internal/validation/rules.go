// Package validation runs column-level quality rules against the newest
// snapshot of each tracked table and reports pass/fail results.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nomadiq-labs/parklake/internal/snapshot"
)

// Result is one rule outcome for one table.
type Result struct {
	Table   string `parquet:"table" json:"table"`
	Rule    string `parquet:"rule" json:"rule"`
	Passed  bool   `parquet:"passed" json:"passed"`
	Details string `parquet:"details" json:"details"`
}

const detailMissing = "column missing"

// Validator accumulates rule results for one table.
type Validator struct {
	table   string
	frame   *snapshot.Frame
	results []Result
}

// New creates a Validator over frame.
func New(table string, frame *snapshot.Frame) *Validator {
	if frame == nil {
		frame = snapshot.NewFrame()
	}
	return &Validator{table: table, frame: frame}
}

// Results returns the results recorded so far, one per rule invocation.
func (v *Validator) Results() []Result {
	return v.results
}

func (v *Validator) record(rule string, passed bool, details string) {
	v.results = append(v.results, Result{Table: v.table, Rule: rule, Passed: passed, Details: details})
}

// NotNull passes when the column exists and holds no nulls.
func (v *Validator) NotNull(column string) {
	rule := column + " not null"
	if !v.frame.Has(column) {
		v.record(rule, false, detailMissing)
		return
	}
	nulls := 0
	for _, val := range v.frame.Column(column) {
		if val == nil {
			nulls++
		}
	}
	v.record(rule, nulls == 0, fmt.Sprintf("%d nulls", nulls))
}

// Unique passes when the distinct count equals the row count. Null is one
// distinct value, so a column with two nulls has one duplicate.
func (v *Validator) Unique(column string) {
	rule := column + " unique"
	if !v.frame.Has(column) {
		v.record(rule, false, detailMissing)
		return
	}
	values := v.frame.Column(column)
	seen := make(map[any]struct{}, len(values))
	for _, val := range values {
		seen[distinctKey(val)] = struct{}{}
	}
	dups := len(values) - len(seen)
	v.record(rule, dups == 0, fmt.Sprintf("%d duplicates", dups))
}

// Regex passes when every value, rendered as text, matches pattern in
// full. Nulls are invalid.
func (v *Validator) Regex(column, pattern string) {
	rule := fmt.Sprintf("%s regex %s", column, pattern)
	if !v.frame.Has(column) {
		v.record(rule, false, detailMissing)
		return
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		v.record(rule, false, fmt.Sprintf("invalid pattern: %v", err))
		return
	}
	invalid := 0
	for _, val := range v.frame.Column(column) {
		if val == nil || !re.MatchString(asText(val)) {
			invalid++
		}
	}
	v.record(rule, invalid == 0, fmt.Sprintf("%d invalid", invalid))
}

// InSet passes when every value is a member of allowed. Nulls are invalid.
func (v *Validator) InSet(column string, allowed []string) {
	rule := fmt.Sprintf("%s in %s", column, formatSet(allowed))
	if !v.frame.Has(column) {
		v.record(rule, false, detailMissing)
		return
	}
	members := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		members[a] = struct{}{}
	}
	invalid := 0
	for _, val := range v.frame.Column(column) {
		if val == nil {
			invalid++
			continue
		}
		if _, ok := members[asText(val)]; !ok {
			invalid++
		}
	}
	v.record(rule, invalid == 0, fmt.Sprintf("%d invalid", invalid))
}

// Range passes when every non-null value is numeric and within [lo, hi].
// Non-numeric and out-of-range counts are reported separately; nulls count
// as neither.
func (v *Validator) Range(column string, lo, hi float64) {
	rule := fmt.Sprintf("%s between %s and %s", column, formatNumber(lo), formatNumber(hi))
	if !v.frame.Has(column) {
		v.record(rule, false, detailMissing)
		return
	}
	nonNumeric, outOfRange := 0, 0
	for _, val := range v.frame.Column(column) {
		if val == nil {
			continue
		}
		f, ok := asNumber(val)
		switch {
		case !ok:
			nonNumeric++
		case f < lo || f > hi:
			outOfRange++
		}
	}
	invalid := nonNumeric + outOfRange
	v.record(rule, invalid == 0,
		fmt.Sprintf("%d invalid (%d non-numeric, %d out-of-range)", invalid, nonNumeric, outOfRange))
}

// NormalizeCode trims and upper-cases a text column in place. Non-text
// values become null.
func (v *Validator) NormalizeCode(column string) {
	if !v.frame.Has(column) {
		return
	}
	values := v.frame.Column(column)
	out := make([]any, len(values))
	for i, val := range values {
		if s, ok := val.(string); ok {
			out[i] = strings.ToUpper(strings.TrimSpace(s))
		}
	}
	_ = v.frame.SetColumn(column, out)
}

type nullKey struct{}

func distinctKey(val any) any {
	switch x := val.(type) {
	case nil:
		return nullKey{}
	case time.Time:
		return x.UnixNano()
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
	}
	return val
}

func asText(val any) string {
	switch x := val.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05.999999")
	default:
		return fmt.Sprint(x)
	}
}

func asNumber(val any) (float64, bool) {
	var f float64
	switch x := val.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatSet(values []string) string {
	quoted := make([]string, len(values))
	for i, s := range values {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
