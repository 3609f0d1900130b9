package linksheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/facility-freshness/internal/domain"
)

// Parse reads a link sheet: a header row naming the columns, then one row per
// facility. It returns the usable rows and how many were dropped, either for a
// blank identifier or because the row could not be parsed as CSV.
func Parse(r io.Reader) ([]domain.LinkRecord, int, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, domain.ErrMissingIDColumn
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols, err := domain.LinkColumnsFromHeader(header)
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.LinkRecord, 0)
	dropped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				dropped++
				continue
			}
			return nil, 0, fmt.Errorf("read row: %w", err)
		}
		rec, ok := cols.Record(row)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}
