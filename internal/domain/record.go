package domain

import "time"

// CatalogRecord is one facility from the catalog source after coercion.
type CatalogRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Municipality string `json:"municipality"`
	Region       string `json:"region,omitempty"`
	Entity       string `json:"entity"`
	CareLevel    string `json:"care_level"`
	Typology     string `json:"typology"`

	AmbulanceCount              int `json:"ambulance_count"`
	ConsultingRoomCount         int `json:"consulting_room_count"`
	OperatingRoomsFunctional    int `json:"operating_rooms_functional"`
	OperatingRoomsNonFunctional int `json:"operating_rooms_non_functional"`
}

// LinkRecord is one row of the document link sheet. DocumentURL and DocumentDate
// are nil when the corresponding cell is empty.
type LinkRecord struct {
	ID           string  `json:"id"`
	DocumentURL  *string `json:"document_url"`
	DocumentDate *string `json:"document_date"`
}

// FreshnessStatus is the recency category of a facility's document.
type FreshnessStatus string

const (
	StatusFresh   FreshnessStatus = "FRESH"
	StatusWarning FreshnessStatus = "WARNING"
	StatusStale   FreshnessStatus = "STALE"
)

// Freshness is the classification of a parseable document date.
type Freshness struct {
	Status  FreshnessStatus `json:"status"`
	AgeDays int             `json:"age_days"`
}

// MergedRecord is a catalog record left-joined with its link sheet row.
// Records are rebuilt from the sources on every cycle and never patched.
type MergedRecord struct {
	CatalogRecord

	DocumentURL  *string    `json:"document_url"`
	DocumentDate *string    `json:"document_date"`
	Freshness    *Freshness `json:"freshness"`
}

// HasDocument reports whether the facility has a document link.
func (r MergedRecord) HasDocument() bool {
	return r.DocumentURL != nil
}

// Key returns the normalized join key of the record.
func (r MergedRecord) Key() string {
	return NormalizeKey(r.ID)
}

// Snapshot is one reconciled load cycle. It is immutable once built; a reload
// produces a new Snapshot rather than modifying this one.
type Snapshot struct {
	ID           string         `json:"id"`
	Generation   uint64         `json:"generation"`
	FetchedAt    time.Time      `json:"fetched_at"`
	CatalogCount int            `json:"catalog_count"`
	LinkCount    int            `json:"link_count"`
	Records      []MergedRecord `json:"-"`
}
