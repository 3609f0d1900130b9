// Package domain models the facility catalog, the compliance-document link sheet,
// and the reconciled view built from both.
//
// # Data Sources
//
// Two snapshots are fetched independently on every load cycle:
//
//	Catalog     JSON array of facility objects served by the SIBE API.
//	Link sheet  Published spreadsheet exported as CSV (header row present).
//
// Neither source is trusted to be well typed. Catalog fields arrive as strings,
// numbers or null depending on the row; sheet cells are free text. Everything is
// coerced once at the ingestion boundary (see [CatalogRecordFromRaw] and
// [LinkRecordsFromRows]) so the rest of the package works on plain Go values.
//
// # Join Key
//
// Both sources carry the CLUES code, the national facility identifier. Codes are
// hand-typed in the sheet, so "  df-12 " and "DF-12" must join. [NormalizeKey]
// trims whitespace and upper-cases; equality of normalized keys is the only join
// predicate. When the sheet repeats a key the last row wins.
//
// # Merge
//
// The merge is a left join over the catalog: output order and cardinality are the
// catalog's, sheet rows without a catalog counterpart are ignored, and catalog
// rows without a sheet row carry null document fields. See [Merge].
//
// # Freshness
//
// The sheet's "fecha" column is the date the facility's document was last
// uploaded, written day-month-year:
//
//	"15/01/2026", "3-2-2025", "07.11.2024"
//
// Age is whole days between that date and now, rounded up, absolute value:
//
//	ageDays <= 15       FRESH
//	15 < ageDays <= 30  WARNING
//	ageDays > 30        STALE
//
// Dates outside the accepted shape leave the record unclassified rather than
// being guessed at. [DatePolicyFallback] additionally accepts ISO dates.
//
// # Views
//
// Filtering ([Filter]) is a conjunction of independent predicates and preserves
// input order. A [View] couples filter criteria with a growable [Window] and resets
// the window whenever the criteria or the underlying snapshot change.
package domain
