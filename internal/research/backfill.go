package research

import (
	"context"

	"github.com/abelbrown/civic/internal/model"
)

// Backfill sources, also used as metric labels.
const (
	backfillNone        = "none"        // report already complete
	backfillSession     = "session"     // filled from the session's cached copy
	backfillEntity      = "entity"      // filled from an entity lookup
	backfillFailed      = "failed"      // lookup errored
	backfillUnavailable = "unavailable" // nothing to fill from
)

// entityMeta is the session's cached entity metadata, captured when the
// fetch is issued.
type entityMeta struct {
	EntityID string
	Image    string
	Party    string
}

func metaOf(s *model.Session) entityMeta {
	if s == nil {
		return entityMeta{}
	}
	return entityMeta{EntityID: s.Entity.ID, Image: s.EntityImage, Party: s.EntityParty}
}

// backfill fills missing image/party on r, first from cached, then from an
// entity lookup. It runs inside a command and never fails the fetch.
func backfill(ctx context.Context, r *model.Report, cached entityMeta, lookup EntityLookup) string {
	if !r.NeedsBackfill() {
		return backfillNone
	}

	fill(r, cached.Image, cached.Party)
	if !r.NeedsBackfill() {
		return backfillSession
	}

	if lookup == nil || cached.EntityID == "" {
		return backfillUnavailable
	}
	e, err := lookup.Get(ctx, cached.EntityID)
	if err != nil || e == nil {
		return backfillFailed
	}
	fill(r, e.Image, e.Party)
	return backfillEntity
}

func fill(r *model.Report, image, party string) {
	if r.EntityImage == "" {
		r.EntityImage = image
	}
	if r.EntityParty == "" {
		r.EntityParty = party
	}
}

// patchSession copies report metadata onto a session record so the next
// fetch for it does not need a lookup.
func patchSession(s *model.Session, r *model.Report) {
	if s == nil || r == nil {
		return
	}
	if s.EntityImage == "" {
		s.EntityImage = r.EntityImage
	}
	if s.EntityParty == "" {
		s.EntityParty = r.EntityParty
	}
}

// carryMeta fills missing cached metadata on dst from an earlier copy of the
// same session.
func carryMeta(dst *model.Session, prev model.Session) {
	if dst.EntityImage == "" {
		dst.EntityImage = prev.EntityImage
	}
	if dst.EntityParty == "" {
		dst.EntityParty = prev.EntityParty
	}
}
