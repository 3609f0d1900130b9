package domain

import (
	"sort"
	"strings"
)

// Labels used by the dashboard for missing attributes.
const (
	UnspecifiedTypology = "NO ESPECIFICADO"
	UnspecifiedLevel    = "Sin Nivel"
	NoPredominant       = "N/A"
)

// Summary holds the dashboard counters. Total counts every record; the other
// counters describe the records matching the active filter.
type Summary struct {
	Total           int `json:"total"`
	Matching        int `json:"matching"`
	WithDocument    int `json:"with_document"`
	WithoutDocument int `json:"without_document"`
	Fresh           int `json:"fresh"`
	Warning         int `json:"warning"`
	Stale           int `json:"stale"`
	Unclassified    int `json:"unclassified"`
}

// Summarize counts all records and the document status of the matching ones.
func Summarize(all, matching []MergedRecord) Summary {
	s := Summary{Total: len(all), Matching: len(matching)}
	for _, r := range matching {
		if !r.HasDocument() {
			s.WithoutDocument++
			continue
		}
		s.WithDocument++
		if r.Freshness == nil {
			s.Unclassified++
			continue
		}
		switch r.Freshness.Status {
		case StatusFresh:
			s.Fresh++
		case StatusWarning:
			s.Warning++
		case StatusStale:
			s.Stale++
		}
	}
	return s
}

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Capacity sums the catalog's capacity fields.
type Capacity struct {
	Ambulances                  int `json:"ambulances"`
	ConsultingRooms             int `json:"consulting_rooms"`
	OperatingRoomsFunctional    int `json:"operating_rooms_functional"`
	OperatingRoomsNonFunctional int `json:"operating_rooms_non_functional"`
}

// Stats is the statistics breakdown for one entity (or nationwide).
type Stats struct {
	Entity              string   `json:"entity"`
	Entities            []string `json:"entities"`
	Total               int      `json:"total"`
	ByTypology          []Count  `json:"by_typology"`
	ByCareLevel         []Count  `json:"by_care_level"`
	PredominantTypology string   `json:"predominant_typology"`
	Capacity            Capacity `json:"capacity"`
}

// Breakdown computes statistics over the records of entity. An "all" sentinel
// entity (see IsAll) selects every record and is reported as "".
func Breakdown(records []MergedRecord, entity string) Stats {
	selected := records
	if IsAll(entity) {
		entity = ""
	} else {
		selected = Filter(records, FilterCriteria{Entity: entity})
	}

	stats := Stats{
		Entity:              entity,
		Entities:            Entities(records),
		Total:               len(selected),
		ByTypology:          countByTypology(selected),
		ByCareLevel:         countByCareLevel(selected),
		PredominantTypology: NoPredominant,
	}
	if len(stats.ByTypology) > 0 {
		stats.PredominantTypology = stats.ByTypology[0].Name
	}
	for _, r := range selected {
		stats.Capacity.Ambulances += r.AmbulanceCount
		stats.Capacity.ConsultingRooms += r.ConsultingRoomCount
		stats.Capacity.OperatingRoomsFunctional += r.OperatingRoomsFunctional
		stats.Capacity.OperatingRoomsNonFunctional += r.OperatingRoomsNonFunctional
	}
	return stats
}

// Entities returns the distinct non-empty entity names, sorted.
func Entities(records []MergedRecord) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range records {
		if r.Entity == "" || seen[r.Entity] {
			continue
		}
		seen[r.Entity] = true
		out = append(out, r.Entity)
	}
	sort.Strings(out)
	return out
}

// countByTypology tallies typologies, largest first; ties break by name.
func countByTypology(records []MergedRecord) []Count {
	counts := tally(records, func(r MergedRecord) string {
		if strings.TrimSpace(r.Typology) == "" {
			return UnspecifiedTypology
		}
		return r.Typology
	})
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Value != counts[j].Value {
			return counts[i].Value > counts[j].Value
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}

// countByCareLevel tallies care levels in order of first appearance.
func countByCareLevel(records []MergedRecord) []Count {
	return tally(records, func(r MergedRecord) string {
		if strings.TrimSpace(r.CareLevel) == "" {
			return UnspecifiedLevel
		}
		return r.CareLevel
	})
}

func tally(records []MergedRecord, label func(MergedRecord) string) []Count {
	index := make(map[string]int)
	counts := make([]Count, 0)
	for _, r := range records {
		name := label(r)
		i, ok := index[name]
		if !ok {
			i = len(counts)
			index[name] = i
			counts = append(counts, Count{Name: name})
		}
		counts[i].Value++
	}
	return counts
}
