package domain

import (
	"errors"
	"fmt"
	"strings"
)

// StatusFilter selects records by document freshness.
type StatusFilter string

const (
	FilterAll     StatusFilter = "ALL"
	FilterFresh   StatusFilter = "FRESH"
	FilterWarning StatusFilter = "WARNING"
	FilterStale   StatusFilter = "STALE"
	FilterMissing StatusFilter = "MISSING"
)

// ErrInvalidStatusFilter is returned by ParseStatusFilter for unknown values.
var ErrInvalidStatusFilter = errors.New("invalid status filter")

// ParseStatusFilter parses a status filter case-insensitively. Empty selects FilterAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	v := StatusFilter(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case "":
		return FilterAll, nil
	case FilterAll, FilterFresh, FilterWarning, FilterStale, FilterMissing:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatusFilter, s)
	}
}

// FilterCriteria is a conjunction of independent predicates. Zero-valued
// fields match everything.
type FilterCriteria struct {
	Text        string       `json:"text,omitempty"`
	Status      StatusFilter `json:"status,omitempty"`
	Region      string       `json:"region,omitempty"`
	Entity      string       `json:"entity,omitempty"`
	CareLevel   string       `json:"care_level,omitempty"`
	MacroRegion string       `json:"macro_region,omitempty"`
}

// allSentinels are attribute filter values meaning "no restriction".
var allSentinels = map[string]bool{"": true, "ALL": true, "TODAS": true, "TODOS": true}

// IsAll reports whether an attribute filter value means "no restriction".
func IsAll(v string) bool {
	return allSentinels[strings.ToUpper(strings.TrimSpace(v))]
}

// Normalize returns the criteria with sentinel values collapsed to "" and text
// trimmed, so that criteria selecting the same records compare equal.
func (c FilterCriteria) Normalize() FilterCriteria {
	out := FilterCriteria{Text: strings.TrimSpace(c.Text)}
	if c.Status != "" && c.Status != FilterAll {
		out.Status = StatusFilter(strings.ToUpper(strings.TrimSpace(string(c.Status))))
		if out.Status == FilterAll {
			out.Status = ""
		}
	}
	for _, f := range []struct {
		src string
		dst *string
	}{
		{c.Region, &out.Region},
		{c.Entity, &out.Entity},
		{c.CareLevel, &out.CareLevel},
		{c.MacroRegion, &out.MacroRegion},
	} {
		if !IsAll(f.src) {
			*f.dst = f.src
		}
	}
	return out
}

// Equal reports whether two criteria select the same records.
func (c FilterCriteria) Equal(other FilterCriteria) bool {
	return c.Normalize() == other.Normalize()
}

// Filter returns the records matching every predicate in c, in input order.
// Records are copied by value; the input is never modified.
func Filter(records []MergedRecord, c FilterCriteria) []MergedRecord {
	return FilterWith(records, c, MacroRegions)
}

// FilterWith is Filter with an explicit macro-region table.
func FilterWith(records []MergedRecord, c FilterCriteria, macros MacroRegionTable) []MergedRecord {
	p := newPredicate(c.Normalize(), macros)
	out := make([]MergedRecord, 0, len(records))
	for _, r := range records {
		if p.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// predicate holds criteria prepared once per Filter call.
type predicate struct {
	text     string
	status   StatusFilter
	region   string
	entity   string
	level    string
	hasMacro bool
	macroSet map[string]bool
}

func newPredicate(c FilterCriteria, macros MacroRegionTable) predicate {
	p := predicate{
		status: c.Status,
		region: c.Region,
		entity: c.Entity,
		level:  c.CareLevel,
	}
	if c.Text != "" {
		p.text = foldText(c.Text)
	}
	if c.MacroRegion != "" {
		p.hasMacro = true
		p.macroSet = macros.Members(c.MacroRegion)
	}
	return p
}

func (p predicate) match(r MergedRecord) bool {
	return p.matchText(r) &&
		p.matchStatus(r) &&
		(p.region == "" || r.Region == p.region) &&
		(p.entity == "" || r.Entity == p.entity) &&
		(p.level == "" || r.CareLevel == p.level) &&
		p.matchMacro(r)
}

func (p predicate) matchText(r MergedRecord) bool {
	if p.text == "" {
		return true
	}
	for _, field := range []string{r.ID, r.Name, r.Municipality, r.Region, r.Entity, r.CareLevel, r.Typology} {
		if field != "" && strings.Contains(foldText(field), p.text) {
			return true
		}
	}
	return false
}

func (p predicate) matchStatus(r MergedRecord) bool {
	switch p.status {
	case "", FilterAll:
		return true
	case FilterMissing:
		return r.DocumentURL == nil
	default:
		return r.DocumentURL != nil && r.Freshness != nil && StatusFilter(r.Freshness.Status) == p.status
	}
}

func (p predicate) matchMacro(r MergedRecord) bool {
	if !p.hasMacro {
		return true
	}
	return p.macroSet[foldName(r.Entity)]
}
