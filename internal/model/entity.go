// Package model holds the data shapes shared by the civic client.
//
// Everything here is a read-only snapshot from the core's point of view.
// Entities and reports are owned by the backing services; sessions are owned
// by the research orchestrator.
package model

import "time"

// Entity is a political candidate record.
type Entity struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Party        string        `json:"party,omitempty"`
	Position     string        `json:"position,omitempty"`
	Image        string        `json:"image,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	LatestReport *ReportDigest `json:"latest_report,omitempty"`
}

// ReportDigest is the slice of a report that travels with an entity listing.
// Its text is searchable but carries less weight than the entity's own fields.
type ReportDigest struct {
	ID      string `json:"id,omitempty"`
	Summary string `json:"summary,omitempty"`
	Body    string `json:"body,omitempty"`
}

// FreeText returns the digest's searchable text, summary first.
func (d *ReportDigest) FreeText() string {
	if d == nil {
		return ""
	}
	switch {
	case d.Summary == "":
		return d.Body
	case d.Body == "":
		return d.Summary
	}
	return d.Summary + " " + d.Body
}
