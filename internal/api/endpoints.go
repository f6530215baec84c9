package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MatchKind selects how a query parameter filters a column.
type MatchKind int

// Match kinds.
const (
	// Contains matches case-insensitively anywhere in the column.
	Contains MatchKind = iota
	// Prefix matches case-insensitively at the start of the column.
	Prefix
	// Equals matches an integer column exactly.
	Equals
)

// Filter binds a query parameter to a column predicate.
type Filter struct {
	Param  string
	Column string
	Match  MatchKind
}

// Page configures LIMIT/OFFSET paging for an endpoint.
type Page struct {
	Limit int
}

// Endpoint is one GET route over a curated table.
type Endpoint struct {
	Path    string
	Select  string
	Filters []Filter
	OrderBy string
	Page    *Page
	// Column, when set, flattens the response to a list of that column's values.
	Column string
}

// Endpoints lists every query route.
var Endpoints = []Endpoint{
	{
		Path:    "/nps_distances",
		Select:  "SELECT * FROM CURATED.NPS_DISTANCES",
		Filters: []Filter{{Param: "starting_national_park", Column: "starting_national_park", Match: Contains}},
	},
	{
		Path:   "/nps_park_usage_annual",
		Select: "SELECT * FROM CURATED.NPS_PARK_USAGE_ANNUAL",
		Filters: []Filter{
			{Param: "park_name", Column: "park_name", Match: Contains},
			{Param: "year", Column: "year", Match: Equals},
		},
	},
	{
		Path:   "/nps_parks_to_landmarks",
		Select: "SELECT park_name, property_name, park_state FROM CURATED.NPS_PARKS_TO_LANDMARKS",
		Filters: []Filter{
			{Param: "park_name", Column: "park_name", Match: Prefix},
			{Param: "park_state", Column: "park_state", Match: Prefix},
			{Param: "property_name", Column: "property_name", Match: Prefix},
		},
		Page: &Page{Limit: 100},
	},
	{
		Path:    "/nps_landmarks",
		Select:  "SELECT DISTINCT landmark_name FROM CURATED.NPS_PARKS_TO_LANDMARKS",
		OrderBy: "landmark_name",
		Column:  "landmark_name",
	},
	{
		Path:   "/nps_to_state_distance",
		Select: "SELECT * FROM CURATED.NPS_TO_STATE_DISTANCE",
		Filters: []Filter{
			{Param: "park_name", Column: "park_name", Match: Contains},
			{Param: "state_name", Column: "state_name", Match: Contains},
		},
	},
	{
		Path:    "/park_alert_categories",
		Select:  "SELECT DISTINCT alert_category FROM CURATED.PARK_ALERTS",
		OrderBy: "alert_category",
		Column:  "alert_category",
	},
	{
		Path:   "/park_alerts",
		Select: "SELECT * FROM CURATED.PARK_ALERTS",
		Filters: []Filter{
			{Param: "park_name", Column: "park_name", Match: Contains},
			{Param: "category", Column: "alert_category", Match: Contains},
		},
	},
	{
		Path:   "/park_usage_annual",
		Select: "SELECT * FROM CURATED.PARK_USAGE_ANNUAL",
		Filters: []Filter{
			{Param: "park_name", Column: "park_name", Match: Contains},
			{Param: "year", Column: "year", Match: Equals},
		},
	},
}

// Build renders the endpoint's SQL and positional arguments for the given parameters.
// Empty parameters are ignored.
func (e Endpoint) Build(params url.Values) (string, []any, error) {
	var (
		conditions []string
		args       []any
	)
	for _, f := range e.Filters {
		raw := strings.TrimSpace(params.Get(f.Param))
		if raw == "" {
			continue
		}
		switch f.Match {
		case Contains:
			conditions = append(conditions, f.Column+" ILIKE ?")
			args = append(args, "%"+raw+"%")
		case Prefix:
			conditions = append(conditions, f.Column+" ILIKE ?")
			args = append(args, raw+"%")
		case Equals:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return "", nil, fmt.Errorf("invalid %s %q: must be an integer", f.Param, raw)
			}
			conditions = append(conditions, f.Column+" = ?")
			args = append(args, n)
		}
	}

	var sb strings.Builder
	sb.WriteString(e.Select)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	if e.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(e.OrderBy)
	}

	if e.Page != nil {
		limit, err := intParam(params, "limit", e.Page.Limit)
		if err != nil {
			return "", nil, err
		}
		offset, err := intParam(params, "offset", 0)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, offset)
	}

	return sb.String(), args, nil
}

func intParam(params url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, raw)
	}
	return n, nil
}
