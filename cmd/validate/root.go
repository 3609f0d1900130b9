package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/adapter/catalog"
	"github.com/couchcryptid/facility-freshness/internal/adapter/linksheet"
	"github.com/couchcryptid/facility-freshness/internal/config"
	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation failed")

type options struct {
	catalogURL  string
	linksURL    string
	catalogFile string
	linksFile   string
	timeout     time.Duration
	datePolicy  string
	now         string
	json        bool
}

// sources holds both inputs as parsed, before any merge.
type sources struct {
	catalog        []domain.CatalogRecord
	catalogSkipped int
	links          []domain.LinkRecord
	linksDropped   int
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit the catalog and link sheet for data problems",
		Long: `validate loads the facility catalog and the document link sheet, either
from their endpoints or from local files, and reports identifiers that cannot
join and document dates that cannot be classified. It exits non-zero when any
check fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRun: func(*cobra.Command, []string) {
			config.LoadEnvFiles()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.catalogURL, "catalog-url", "", "catalog JSON endpoint (default $CATALOG_URL)")
	f.StringVar(&opts.linksURL, "links-url", "", "link sheet CSV export (default $LINK_SHEET_URL)")
	f.StringVar(&opts.catalogFile, "catalog-file", "", "read the catalog from a local JSON file")
	f.StringVar(&opts.linksFile, "links-file", "", "read the link sheet from a local CSV file")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout for each source request")
	f.StringVar(&opts.datePolicy, "date-policy", string(domain.DatePolicyStrict), "document date parsing: strict or fallback")
	f.StringVar(&opts.now, "now", "", "audit as of this date, UTC midnight (YYYY-MM-DD)")
	f.BoolVar(&opts.json, "json", false, "print the audit report as JSON")
	cmd.MarkFlagsMutuallyExclusive("catalog-url", "catalog-file")
	cmd.MarkFlagsMutuallyExclusive("links-url", "links-file")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	clock := clockwork.NewRealClock()
	if opts.now != "" {
		at, err := time.Parse(time.DateOnly, opts.now)
		if err != nil {
			return fmt.Errorf("invalid --now %q: %w", opts.now, err)
		}
		clock = clockwork.NewFakeClockAt(at)
	}
	policy, err := domain.ParseDatePolicy(opts.datePolicy)
	if err != nil {
		return err
	}

	src, err := load(cmd, opts)
	if err != nil {
		return err
	}

	report := domain.Audit(src.catalog, src.links, clock.Now(), domain.NewClassifier(policy))
	phases := []*phase{
		validateCatalogKeys(report, src.catalogSkipped),
		validateLinkKeys(report, src.linksDropped),
		validateDocumentDates(report),
	}

	out := cmd.OutOrStdout()
	if opts.json {
		if err := encodeJSON(out, report); err != nil {
			return err
		}
	} else {
		printReport(out, report, phases)
	}

	for _, p := range phases {
		if !p.passed() {
			return errValidationFailed
		}
	}
	return nil
}

// ── Data loading ──

func load(cmd *cobra.Command, opts *options) (*sources, error) {
	ctx := cmd.Context()
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), "warn", "text")
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	src := &sources{}

	catalogClient := catalog.NewClient(
		firstNonEmpty(opts.catalogURL, os.Getenv("CATALOG_URL"), config.DefaultCatalogURL),
		opts.timeout, logger, metrics)
	catalogBody, err := openSource(opts.catalogFile, func() (io.ReadCloser, error) {
		return catalogClient.Open(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	src.catalog, src.catalogSkipped, err = catalog.Decode(catalogBody)
	catalogBody.Close()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	linkClient := linksheet.NewClient(
		firstNonEmpty(opts.linksURL, os.Getenv("LINK_SHEET_URL"), config.DefaultLinkSheetURL),
		opts.timeout, logger, metrics)
	linksBody, err := openSource(opts.linksFile, func() (io.ReadCloser, error) {
		return linkClient.Open(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load link sheet: %w", err)
	}
	src.links, src.linksDropped, err = linksheet.Parse(linksBody)
	linksBody.Close()
	if err != nil {
		return nil, fmt.Errorf("load link sheet: %w", err)
	}
	return src, nil
}

// openSource opens the local file when path is set and otherwise fetches the
// source over HTTP.
func openSource(path string, fetch func() (io.ReadCloser, error)) (io.ReadCloser, error) {
	if path != "" {
		return os.Open(path)
	}
	return fetch()
}

// ── Phases ──

func validateCatalogKeys(r domain.AuditReport, skipped int) *phase {
	p := &phase{name: "Catalog keys"}
	if r.CatalogRows == 0 {
		p.errorf("catalog has no facilities")
	}
	if skipped > 0 {
		p.errorf("%d catalog entries are not objects", skipped)
	}
	for _, pos := range r.BlankCatalogKeys {
		p.errorf("facility #%d has a blank CLUES and can never match a document", pos)
	}
	for _, key := range r.DuplicateCatalogKeys {
		p.errorf("CLUES %s appears more than once in the catalog", key)
	}
	return p
}

func validateLinkKeys(r domain.AuditReport, dropped int) *phase {
	p := &phase{name: "Link sheet keys"}
	if dropped > 0 {
		p.errorf("%d link sheet rows were dropped (blank CLUES or malformed)", dropped)
	}
	for _, key := range r.DuplicateLinkKeys {
		p.errorf("CLUES %s has several link rows; only the last is used", key)
	}
	for _, key := range r.OrphanLinkKeys {
		p.errorf("CLUES %s is linked but not in the catalog", key)
	}
	return p
}

func validateDocumentDates(r domain.AuditReport) *phase {
	p := &phase{name: "Document dates"}
	for _, key := range r.DocumentsWithoutDate {
		p.errorf("%s: document has no date", key)
	}
	for _, key := range r.DatesWithoutDocument {
		p.errorf("%s: date given without a document link", key)
	}
	for _, key := range sortedKeys(r.UnparseableDates) {
		p.errorf("%s: cannot parse date %q", key, r.UnparseableDates[key])
	}
	return p
}

// ── Reporting ──

func printReport(w io.Writer, r domain.AuditReport, phases []*phase) {
	fmt.Fprintln(w, "=== Facility Source Audit ===")
	fmt.Fprintln(w)

	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d catalog, %d link sheet\n", r.CatalogRows, r.LinkRows)

	failed := false
	for _, p := range phases {
		if p.passed() {
			continue
		}
		failed = true
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if !failed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
