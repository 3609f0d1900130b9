package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Catalog field names as served by the SIBE API.
const (
	catalogFieldID              = "clues"
	catalogFieldName            = "nombre"
	catalogFieldMunicipality    = "municipio"
	catalogFieldRegion          = "region"
	catalogFieldEntity          = "entidad"
	catalogFieldCareLevel       = "nivel"
	catalogFieldTypology        = "tipologia"
	catalogFieldAmbulances      = "ambulancias"
	catalogFieldConsultingRooms = "consultorios"
	catalogFieldORFunctional    = "q_func"
	catalogFieldORNonFunctional = "q_no_func"
)

// Link sheet column names.
const (
	LinkColumnID   = "clues"
	LinkColumnURL  = "link_pdf"
	LinkColumnDate = "fecha"
)

// ErrMissingIDColumn is returned when a link sheet header has no "clues" column.
var ErrMissingIDColumn = errors.New("link sheet header has no clues column")

// CatalogRecordFromRaw coerces one loosely typed catalog object into a
// CatalogRecord. Missing or mistyped fields become zero values; the identifier
// is kept verbatim so it can be displayed as the source wrote it.
func CatalogRecordFromRaw(raw map[string]any) CatalogRecord {
	return CatalogRecord{
		ID:           stringField(raw[catalogFieldID]),
		Name:         strings.TrimSpace(stringField(raw[catalogFieldName])),
		Municipality: strings.TrimSpace(stringField(raw[catalogFieldMunicipality])),
		Region:       strings.TrimSpace(stringField(raw[catalogFieldRegion])),
		Entity:       strings.TrimSpace(stringField(raw[catalogFieldEntity])),
		CareLevel:    strings.TrimSpace(stringField(raw[catalogFieldCareLevel])),
		Typology:     strings.TrimSpace(stringField(raw[catalogFieldTypology])),

		AmbulanceCount:              countField(raw[catalogFieldAmbulances]),
		ConsultingRoomCount:         countField(raw[catalogFieldConsultingRooms]),
		OperatingRoomsFunctional:    countField(raw[catalogFieldORFunctional]),
		OperatingRoomsNonFunctional: countField(raw[catalogFieldORNonFunctional]),
	}
}

// stringField renders a decoded JSON value as text. Objects and arrays are not
// meaningful here and yield "".
func stringField(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// countField coerces a capacity value to a non-negative integer. Numbers and
// numeric strings are accepted and truncated; anything else is 0.
func countField(v any) int {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// LinkColumns holds the positions of the link sheet columns within a row.
// URL and Date are -1 when the sheet lacks them.
type LinkColumns struct {
	ID   int
	URL  int
	Date int
}

// LinkColumnsFromHeader locates the link sheet columns. Header names are matched
// case-insensitively after trimming whitespace and a leading byte-order mark.
func LinkColumnsFromHeader(header []string) (LinkColumns, error) {
	cols := LinkColumns{ID: -1, URL: -1, Date: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimFunc(h, isTrimmable)) {
		case LinkColumnID:
			cols.ID = i
		case LinkColumnURL:
			cols.URL = i
		case LinkColumnDate:
			cols.Date = i
		}
	}
	if cols.ID < 0 {
		return cols, ErrMissingIDColumn
	}
	return cols, nil
}

// Record builds a LinkRecord from a data row. It reports false when the row has
// no identifier, in which case the row must not reach the merge.
func (c LinkColumns) Record(row []string) (LinkRecord, bool) {
	id := cell(row, c.ID)
	if strings.TrimFunc(id, isTrimmable) == "" {
		return LinkRecord{}, false
	}
	return LinkRecord{
		ID:           id,
		DocumentURL:  optionalCell(row, c.URL),
		DocumentDate: optionalCell(row, c.Date),
	}, true
}

// LinkRecordsFromRows converts a parsed sheet (header first) into link records,
// returning how many data rows were dropped for lacking an identifier.
func LinkRecordsFromRows(rows [][]string) ([]LinkRecord, int, error) {
	if len(rows) == 0 {
		return nil, 0, ErrMissingIDColumn
	}
	cols, err := LinkColumnsFromHeader(rows[0])
	if err != nil {
		return nil, 0, err
	}

	records := make([]LinkRecord, 0, len(rows)-1)
	dropped := 0
	for _, row := range rows[1:] {
		rec, ok := cols.Record(row)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func optionalCell(row []string, i int) *string {
	v := strings.TrimSpace(cell(row, i))
	if v == "" {
		return nil
	}
	return &v
}
