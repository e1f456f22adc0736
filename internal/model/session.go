package model

import (
	"sort"
	"time"
)

// EntityRef identifies the entity a session is about. ID may be empty for
// sessions started from free text.
type EntityRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Exchange is one question/answer pair. An empty Answer means the exchange is
// still pending.
type Exchange struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Pending reports whether the exchange is waiting for an answer.
func (e Exchange) Pending() bool {
	return e.Answer == ""
}

// Session is one research conversation bound to a single entity.
type Session struct {
	ID        string     `json:"id"`
	Entity    EntityRef  `json:"entity"`
	Role      string     `json:"role"`
	ReportID  string     `json:"report_id,omitempty"`
	Messages  []Exchange `json:"messages,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	// Cached entity metadata, used to backfill reports that lack it.
	EntityImage string `json:"entity_image,omitempty"`
	EntityParty string `json:"entity_party,omitempty"`
}

// SortExchanges orders exchanges ascending by CreatedAt. Ties keep their
// relative order.
func SortExchanges(xs []Exchange) {
	sort.SliceStable(xs, func(i, j int) bool {
		return xs[i].CreatedAt.Before(xs[j].CreatedAt)
	})
}

// SortSessions orders sessions ascending by CreatedAt, then by ID.
func SortSessions(ss []Session) {
	sort.SliceStable(ss, func(i, j int) bool {
		if !ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].CreatedAt.Before(ss[j].CreatedAt)
		}
		return ss[i].ID < ss[j].ID
	})
}

// NewSession is the payload for creating a persisted session.
type NewSession struct {
	EntityName string `json:"entity_name"`
	Role       string `json:"role"`
}

// NewQuestion is the payload for appending a question to a persisted session.
type NewQuestion struct {
	SessionID string `json:"-"`
	Question  string `json:"question"`
}
