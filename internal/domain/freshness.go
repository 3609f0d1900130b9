package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Freshness thresholds in whole days.
const (
	FreshMaxDays   = 15
	WarningMaxDays = 30
)

// DatePolicy selects which document date shapes are accepted.
type DatePolicy string

const (
	// DatePolicyStrict accepts only day-month-year dates.
	DatePolicyStrict DatePolicy = "strict"
	// DatePolicyFallback also accepts ISO dates and RFC 3339 timestamps.
	DatePolicyFallback DatePolicy = "fallback"
)

// ParseDatePolicy validates a policy name. Empty selects DatePolicyStrict.
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch DatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DatePolicyStrict:
		return DatePolicyStrict, nil
	case DatePolicyFallback:
		return DatePolicyFallback, nil
	default:
		return "", fmt.Errorf("unknown date policy %q", s)
	}
}

// dmyRe matches D-M-YYYY with the same delimiter ('-', '/' or '.') used twice.
var dmyRe = regexp.MustCompile(`^(\d{1,2})([-/.])(\d{1,2})([-/.])(\d{4})$`)

// isoRe matches YYYY-MM-DD.
var isoRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// Classifier assigns freshness categories to document dates.
type Classifier struct {
	Policy DatePolicy
}

// NewClassifier returns a Classifier for the given policy.
func NewClassifier(policy DatePolicy) Classifier {
	return Classifier{Policy: policy}
}

// Classify returns the freshness of documentDate at now, or nil when the date is
// absent or cannot be parsed under the classifier's policy.
func (c Classifier) Classify(documentDate *string, now time.Time) *Freshness {
	if documentDate == nil {
		return nil
	}
	date, ok := c.ParseDate(*documentDate, now.Location())
	if !ok {
		return nil
	}
	return classifyAge(ageInDays(date, now))
}

// Classify classifies documentDate under the strict policy.
func Classify(documentDate string, now time.Time) *Freshness {
	return NewClassifier(DatePolicyStrict).Classify(&documentDate, now)
}

// ParseDate parses a document date to midnight in loc.
func (c Classifier) ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseDayMonthYear(s, loc); ok {
		return t, true
	}
	if c.Policy != DatePolicyFallback {
		return time.Time{}, false
	}
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3], loc)
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		ts = ts.In(loc)
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

func parseDayMonthYear(s string, loc *time.Location) (time.Time, bool) {
	m := dmyRe.FindStringSubmatch(s)
	if m == nil || m[2] != m[4] {
		return time.Time{}, false
	}
	return calendarDate(m[5], m[3], m[1], loc)
}

// calendarDate builds a date and rejects values time.Date would normalize,
// such as 31 February.
func calendarDate(year, month, day string, loc *time.Location) (time.Time, bool) {
	y, errY := strconv.Atoi(year)
	mo, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil || mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// ageInDays is ceil(|now - date| / 24h).
func ageInDays(date, now time.Time) int {
	diff := now.Sub(date)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

func classifyAge(days int) *Freshness {
	status := StatusFresh
	switch {
	case days > WarningMaxDays:
		status = StatusStale
	case days > FreshMaxDays:
		status = StatusWarning
	}
	return &Freshness{Status: status, AgeDays: days}
}
