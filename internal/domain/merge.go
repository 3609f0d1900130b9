package domain

import "time"

// Merge left-joins catalog records with link records by normalized identifier.
//
// The link lookup is built in a single pass in input order, so when several link
// rows share a key the last one wins. The result has exactly one record per
// catalog row, in catalog order; link rows with no catalog counterpart are
// ignored. Freshness is left nil; see AnnotateFreshness.
func Merge(catalog []CatalogRecord, links []LinkRecord) []MergedRecord {
	byKey := make(map[string]LinkRecord, len(links))
	for _, l := range links {
		key := NormalizeKey(l.ID)
		if key == "" {
			continue
		}
		byKey[key] = l
	}

	merged := make([]MergedRecord, len(catalog))
	for i, c := range catalog {
		merged[i] = MergedRecord{CatalogRecord: c}

		key := NormalizeKey(c.ID)
		if key == "" {
			continue
		}
		if l, ok := byKey[key]; ok {
			merged[i].DocumentURL = cloneString(l.DocumentURL)
			merged[i].DocumentDate = cloneString(l.DocumentDate)
		}
	}
	return merged
}

// AnnotateFreshness returns a copy of records with Freshness derived from each
// record's document date relative to now. Records without a document link stay
// unclassified whatever their date. The input slice is not modified.
func AnnotateFreshness(records []MergedRecord, now time.Time, c Classifier) []MergedRecord {
	out := make([]MergedRecord, len(records))
	for i, r := range records {
		r.Freshness = nil
		if r.HasDocument() {
			r.Freshness = c.Classify(r.DocumentDate, now)
		}
		out[i] = r
	}
	return out
}

// Reconcile merges both sources and classifies every merged record.
func Reconcile(catalog []CatalogRecord, links []LinkRecord, now time.Time, c Classifier) []MergedRecord {
	return AnnotateFreshness(Merge(catalog, links), now, c)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
