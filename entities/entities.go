// Package entities holds the records that flow through a validation run.
package entities

// Sentinel values used when the register gives no usable answer
const (
	NoMatchName   = "None"
	NoMatchStatus = "No match"
	ErrorName     = "Error"
)

// InputRecord is one row of the uploaded client list
type InputRecord struct {
	PharmacyName string
}

// Candidate is a register entry returned by a single lookup, not yet scored
type Candidate struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// NoMatch is substituted when a lookup returns no candidates
var NoMatch = Candidate{Name: NoMatchName, Status: NoMatchStatus}

// ErrorCandidate turns a failed lookup into a sentinel candidate whose
// status carries the failure message
func ErrorCandidate(err error) Candidate {
	return Candidate{Name: ErrorName, Status: err.Error()}
}

// Result is the annotated output row for one input record
type Result struct {
	PharmacyName string `json:"pharmacy_name"`
	BestMatch    string `json:"best_match"`
	MatchScore   int    `json:"match_score"`
	Status       string `json:"status"`
}

// ReportColumns is the header of every exported report, in order
var ReportColumns = []string{"PharmacyName", "BestMatch", "MatchScore", "Status"}
