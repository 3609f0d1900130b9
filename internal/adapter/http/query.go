package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/couchcryptid/facility-freshness/internal/domain"
)

// maxPages caps how far a listing window can be grown in one request.
const maxPages = 500

var errInvalidPages = errors.New("invalid pages")

// parseCriteria extracts filter criteria from query parameters.
func parseCriteria(q url.Values) (domain.FilterCriteria, error) {
	status, err := domain.ParseStatusFilter(q.Get("status"))
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	c := domain.FilterCriteria{
		Text:        q.Get("q"),
		Status:      status,
		Region:      q.Get("region"),
		Entity:      q.Get("entity"),
		CareLevel:   q.Get("level"),
		MacroRegion: q.Get("macro"),
	}
	return c.Normalize(), nil
}

// parsePages reads how many windows of results to return. Missing means one.
func parsePages(q url.Values) (int, error) {
	v := q.Get("pages")
	if v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxPages {
		return 0, fmt.Errorf("%w: %q (want 1-%d)", errInvalidPages, v, maxPages)
	}
	return n, nil
}
