package domain

import (
	"sort"
	"strings"
	"time"
)

// AuditReport lists source data problems that degrade the join or the freshness
// classification. Identifiers are reported normalized and sorted.
type AuditReport struct {
	CatalogRows int `json:"catalog_rows"`
	LinkRows    int `json:"link_rows"`

	// BlankCatalogKeys holds 1-based catalog positions whose identifier is blank.
	BlankCatalogKeys     []int    `json:"blank_catalog_keys"`
	DuplicateCatalogKeys []string `json:"duplicate_catalog_keys"`

	// DuplicateLinkKeys appear on several link rows; only the last row is used.
	DuplicateLinkKeys []string `json:"duplicate_link_keys"`
	// OrphanLinkKeys have no catalog record and are never shown.
	OrphanLinkKeys []string `json:"orphan_link_keys"`

	DocumentsWithoutDate []string `json:"documents_without_date"`
	DatesWithoutDocument []string `json:"dates_without_document"`
	// UnparseableDates maps a key to the date text that could not be classified.
	UnparseableDates map[string]string `json:"unparseable_dates"`
}

// Audit inspects both sources as the merge would see them.
func Audit(catalog []CatalogRecord, links []LinkRecord, now time.Time, c Classifier) AuditReport {
	report := AuditReport{
		CatalogRows:          len(catalog),
		LinkRows:             len(links),
		BlankCatalogKeys:     []int{},
		DuplicateCatalogKeys: []string{},
		DuplicateLinkKeys:    []string{},
		OrphanLinkKeys:       []string{},
		DocumentsWithoutDate: []string{},
		DatesWithoutDocument: []string{},
		UnparseableDates:     map[string]string{},
	}

	catalogKeys := make(map[string]int, len(catalog))
	for i, rec := range catalog {
		key := NormalizeKey(rec.ID)
		if key == "" {
			report.BlankCatalogKeys = append(report.BlankCatalogKeys, i+1)
			continue
		}
		catalogKeys[key]++
	}
	for key, n := range catalogKeys {
		if n > 1 {
			report.DuplicateCatalogKeys = append(report.DuplicateCatalogKeys, key)
		}
	}

	linkKeys := make(map[string]int, len(links))
	for _, l := range links {
		if key := NormalizeKey(l.ID); key != "" {
			linkKeys[key]++
		}
	}
	for key, n := range linkKeys {
		if n > 1 {
			report.DuplicateLinkKeys = append(report.DuplicateLinkKeys, key)
		}
		if catalogKeys[key] == 0 {
			report.OrphanLinkKeys = append(report.OrphanLinkKeys, key)
		}
	}

	seen := make(map[string]bool, len(catalogKeys))
	for _, rec := range Reconcile(catalog, links, now, c) {
		key := rec.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		hasDate := rec.DocumentDate != nil && strings.TrimSpace(*rec.DocumentDate) != ""
		switch {
		case rec.HasDocument() && !hasDate:
			report.DocumentsWithoutDate = append(report.DocumentsWithoutDate, key)
		case !rec.HasDocument() && hasDate:
			report.DatesWithoutDocument = append(report.DatesWithoutDocument, key)
		case rec.HasDocument() && rec.Freshness == nil:
			report.UnparseableDates[key] = *rec.DocumentDate
		}
	}

	sort.Strings(report.DuplicateCatalogKeys)
	sort.Strings(report.DuplicateLinkKeys)
	sort.Strings(report.OrphanLinkKeys)
	sort.Strings(report.DocumentsWithoutDate)
	sort.Strings(report.DatesWithoutDocument)
	return report
}
