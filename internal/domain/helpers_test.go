package domain

import (
	"fmt"
	"time"
)

var testNow = time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// daysAgo renders the date n days before testNow in the sheet's format.
func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format("02-01-2006")
}

// fixtureRecords returns reconciled records covering every document state.
func fixtureRecords() []MergedRecord {
	catalog := []CatalogRecord{
		{ID: "SON-01", Name: "Hospital General Hermosillo", Municipality: "Hermosillo", Entity: "SONORA", CareLevel: "SEGUNDO NIVEL", Typology: "HOSPITAL GENERAL"},
		{ID: "SON-02", Name: "Hospital Integral Caborca", Municipality: "Caborca", Entity: "SONORA", CareLevel: "SEGUNDO NIVEL", Typology: "HOSPITAL INTEGRAL"},
		{ID: "MIC-01", Name: "Hospital de la Mujer", Municipality: "Morelia", Entity: "MICHOACÁN", CareLevel: "TERCER NIVEL", Typology: "HOSPITAL ESPECIALIDAD"},
		{ID: "OAX-01", Name: "Hospital Civil", Municipality: "Oaxaca de Juárez", Entity: "OAXACA", CareLevel: "SEGUNDO NIVEL", Typology: "HOSPITAL GENERAL"},
		{ID: "OAX-02", Name: "Clínica Juchitán", Municipality: "Juchitán", Entity: "OAXACA", CareLevel: "", Typology: ""},
		{ID: "CAM-01", Name: "Hospital Campeche", Municipality: "Campeche", Entity: "CAMPECHE", CareLevel: "SEGUNDO NIVEL", Typology: "HOSPITAL GENERAL"},
	}
	links := []LinkRecord{
		{ID: "son-01", DocumentURL: strPtr("http://docs/son-01.pdf"), DocumentDate: strPtr(daysAgo(3))},
		{ID: "SON-02", DocumentURL: strPtr("http://docs/son-02.pdf"), DocumentDate: strPtr(daysAgo(20))},
		{ID: "MIC-01", DocumentURL: strPtr("http://docs/mic-01.pdf"), DocumentDate: strPtr(daysAgo(90))},
		{ID: "OAX-01", DocumentURL: strPtr("http://docs/oax-01.pdf"), DocumentDate: strPtr("sin fecha")},
		{ID: "CAM-01", DocumentURL: nil, DocumentDate: strPtr(daysAgo(1))},
	}
	return Reconcile(catalog, links, testNow, NewClassifier(DatePolicyStrict))
}

func ids(records []MergedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func numberedCatalog(n int) []CatalogRecord {
	out := make([]CatalogRecord, n)
	for i := range out {
		out[i] = CatalogRecord{ID: fmt.Sprintf("UNIT-%02d", i+1), Name: fmt.Sprintf("Unidad %d", i+1)}
	}
	return out
}
