package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanCatalog = `[
	{"clues": "AB-01", "nombre": "Hospital A"},
	{"clues": "AB-02", "nombre": "Hospital B"}
]`

const cleanLinks = "clues,link_pdf,fecha\n" +
	"AB-01,http://x/a,01-02-2024\n" +
	"ab-02,http://x/b,10-02-2024\n"

const dirtyCatalog = `[
	{"clues": "AB-01"},
	{"clues": ""},
	{"clues": "ab-01 "},
	"junk"
]`

const dirtyLinks = "clues,link_pdf,fecha\n" +
	"AB-01,http://x/a,2024-02-01\n" +
	"ZZ-09,http://x/z,01-02-2024\n" +
	",http://x/none,01-02-2024\n"

func writeSources(t *testing.T, catalogJSON, linksCSV string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	linksPath := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogJSON), 0o600))
	require.NoError(t, os.WriteFile(linksPath, []byte(linksCSV), 0o600))
	return catalogPath, linksPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate_CleanFiles(t *testing.T) {
	catalogPath, linksPath := writeSources(t, cleanCatalog, cleanLinks)

	out, err := execute(t, "--catalog-file", catalogPath, "--links-file", linksPath, "--now", "2024-02-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Records: 2 catalog, 2 link sheet")
	assert.Contains(t, out, "All validations passed.")
	assert.NotContains(t, out, "FAIL")
}

func TestValidate_ReportsProblems(t *testing.T) {
	catalogPath, linksPath := writeSources(t, dirtyCatalog, dirtyLinks)

	out, err := execute(t, "--catalog-file", catalogPath, "--links-file", linksPath, "--now", "2024-02-15")
	require.ErrorIs(t, err, errValidationFailed)

	assert.Contains(t, out, "1 catalog entries are not objects")
	assert.Contains(t, out, "facility #2 has a blank CLUES")
	assert.Contains(t, out, "CLUES AB-01 appears more than once in the catalog")
	assert.Contains(t, out, "1 link sheet rows were dropped")
	assert.Contains(t, out, "CLUES ZZ-09 is linked but not in the catalog")
	assert.Contains(t, out, `AB-01: cannot parse date "2024-02-01"`)
	assert.Contains(t, out, "Validation FAILED.")
}

func TestValidate_FallbackPolicyAcceptsISODates(t *testing.T) {
	catalog := `[{"clues": "AB-01"}]`
	links := "clues,link_pdf,fecha\nAB-01,http://x/a,2024-02-01\n"
	catalogPath, linksPath := writeSources(t, catalog, links)

	_, err := execute(t, "--catalog-file", catalogPath, "--links-file", linksPath,
		"--now", "2024-02-15", "--date-policy", "fallback")
	require.NoError(t, err)
}

func TestValidate_JSONFromURLs(t *testing.T) {
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, cleanCatalog)
	}))
	t.Cleanup(catalogSrv.Close)
	linkSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "clues,link_pdf,fecha\nAB-01,http://x/a,\n")
	}))
	t.Cleanup(linkSrv.Close)

	out, err := execute(t, "--catalog-url", catalogSrv.URL, "--links-url", linkSrv.URL, "--json")
	require.ErrorIs(t, err, errValidationFailed)

	var report domain.AuditReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.CatalogRows)
	assert.Equal(t, []string{"AB-01"}, report.DocumentsWithoutDate)
}

func TestValidate_SourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "catalog under maintenance")
	}))
	t.Cleanup(srv.Close)

	_, err := execute(t, "--catalog-url", srv.URL, "--links-url", srv.URL)
	require.Error(t, err)
	assert.EqualError(t, err, "load catalog: catalog API error: status 500: catalog under maintenance")
	assert.NotErrorIs(t, err, errValidationFailed)

	_, err = execute(t, "--catalog-file", filepath.Join(t.TempDir(), "missing.json"), "--links-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}

func TestValidate_InvalidFlags(t *testing.T) {
	catalogPath, linksPath := writeSources(t, cleanCatalog, cleanLinks)

	_, err := execute(t, "--catalog-file", catalogPath, "--links-file", linksPath, "--now", "15/02/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --now")

	_, err = execute(t, "--catalog-file", catalogPath, "--links-file", linksPath, "--date-policy", "lenient")
	require.Error(t, err)

	_, err = execute(t, "--catalog-file", catalogPath, "--catalog-url", "http://x")
	require.Error(t, err)
}
