package validation

import "github.com/nomadiq-labs/parklake/internal/snapshot"

const parkCodePattern = `^[A-Z]{4}$`

// AlertCategories are the categories the upstream API documents for alerts.
var AlertCategories = []string{"Information", "Caution", "Danger", "Park Closure"}

// RuleSet applies the fixed rules of one tracked table.
type RuleSet struct {
	// Table is the logical table name used in results.
	Table string
	// Folder is the table folder under a layer directory.
	Folder string
	Apply  func(v *Validator)
}

// RuleSets lists the tracked tables in report order.
var RuleSets = []RuleSet{
	{Table: "parks", Folder: "PARKS", Apply: parksRules},
	{Table: "alerts", Folder: "ALERTS", Apply: alertsRules},
	{Table: "public_use", Folder: "PUBLIC_USE", Apply: publicUseRules},
}

func parksRules(v *Validator) {
	v.NormalizeCode("parkCode")
	v.NotNull("id")
	v.Unique("id")
	v.Regex("parkCode", parkCodePattern)
	v.Range("latitude", -90, 90)
	v.Range("longitude", -180, 180)
	v.NotNull("_ingestion_timestamp")
	v.Unique("_record_id")
}

func alertsRules(v *Validator) {
	v.NormalizeCode("parkCode")
	v.NotNull("id")
	v.Unique("id")
	v.InSet("category", AlertCategories)
	v.Regex("parkCode", parkCodePattern)
	v.Unique("_record_id")
}

func publicUseRules(v *Validator) {
	v.NotNull("ParkName")
	v.Regex("UnitCode", parkCodePattern)
	v.Unique("_record_id")
}

// Check runs rs against frame and returns its results.
func (rs RuleSet) Check(frame *snapshot.Frame) []Result {
	v := New(rs.Table, frame)
	rs.Apply(v)
	return v.Results()
}
