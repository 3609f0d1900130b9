package domain

import (
	"time"

	"github.com/google/uuid"
)

// BuildSnapshot reconciles both sources into a new immutable Snapshot.
func BuildSnapshot(generation uint64, catalog []CatalogRecord, links []LinkRecord, now time.Time, c Classifier) *Snapshot {
	return &Snapshot{
		ID:           uuid.NewString(),
		Generation:   generation,
		FetchedAt:    now,
		CatalogCount: len(catalog),
		LinkCount:    len(links),
		Records:      Reconcile(catalog, links, now, c),
	}
}

// Labels for records that carry no freshness status.
const (
	LabelMissing      = string(FilterMissing)
	LabelUnclassified = "UNCLASSIFIED"
)

// FreshnessLabel describes a record's document state in one word: its
// freshness status, MISSING without a document, or UNCLASSIFIED when the
// document date could not be parsed.
func FreshnessLabel(r MergedRecord) string {
	switch {
	case !r.HasDocument():
		return LabelMissing
	case r.Freshness == nil:
		return LabelUnclassified
	default:
		return string(r.Freshness.Status)
	}
}
