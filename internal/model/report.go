package model

import "time"

// Freshness describes how current a report is.
type Freshness struct {
	IsFresh bool `json:"is_fresh"`
	AgeDays int  `json:"age_days"`
}

// Source is a citation attached to a report when sources are requested.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is a generated research document about one entity in one role.
type Report struct {
	ID              string    `json:"id"`
	Position        string    `json:"position"`
	Background      string    `json:"background"`
	Accomplishments string    `json:"accomplishments"`
	Criticisms      string    `json:"criticisms"`
	Summary         string    `json:"summary"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Freshness       Freshness `json:"freshness"`

	// Optional entity metadata. Filled by the report service when it can
	// resolve the entity, otherwise by backfill.
	EntityImage string `json:"entity_image,omitempty"`
	EntityParty string `json:"entity_party,omitempty"`

	Sources []Source `json:"sources,omitempty"`
}

// NeedsBackfill reports whether entity metadata is missing.
func (r *Report) NeedsBackfill() bool {
	return r != nil && (r.EntityImage == "" || r.EntityParty == "")
}

// Clone returns a deep copy so cached reports are never aliased by callers.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Sources != nil {
		cp.Sources = make([]Source, len(r.Sources))
		copy(cp.Sources, r.Sources)
	}
	return &cp
}
