package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/adapter/catalog"
	"github.com/couchcryptid/facility-freshness/internal/adapter/linksheet"
	"github.com/couchcryptid/facility-freshness/internal/config"
	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
	"github.com/couchcryptid/facility-freshness/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type options struct {
	catalogURL string
	linksURL   string
	timeout    time.Duration
	datePolicy string
	macroFile  string
	now        string
	out        string
	logLevel   string

	text   string
	status string
	region string
	entity string
	level  string
	macro  string

	summary bool
	stats   bool
}

type recordsOutput struct {
	Snapshot *domain.Snapshot      `json:"snapshot"`
	Criteria domain.FilterCriteria `json:"criteria"`
	Count    int                   `json:"count"`
	Records  []domain.MergedRecord `json:"records"`
}

type summaryOutput struct {
	Snapshot *domain.Snapshot      `json:"snapshot"`
	Criteria domain.FilterCriteria `json:"criteria"`
	Summary  domain.Summary        `json:"summary"`
}

type statsOutput struct {
	Snapshot *domain.Snapshot `json:"snapshot"`
	domain.Stats
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Reconcile the facility catalog with its document links",
		Long: `snapshot downloads the facility catalog and the document link sheet,
joins them by CLUES, classifies each document by age and prints the
facilities matching the given filters as JSON.

Source URLs default to CATALOG_URL and LINK_SHEET_URL (or the built-in
endpoints). Variables may also come from .env.local or .env.`,
		SilenceUsage: true,
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
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout for each source request")
	f.StringVar(&opts.datePolicy, "date-policy", string(domain.DatePolicyStrict), "document date parsing: strict or fallback")
	f.StringVar(&opts.macroFile, "macro-file", "", "YAML file overriding the macro-region table")
	f.StringVar(&opts.now, "now", "", "classify as of this date, UTC midnight (YYYY-MM-DD)")
	f.StringVarP(&opts.out, "out", "o", "", "write output to this file instead of stdout")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level for progress messages on stderr")

	f.StringVar(&opts.text, "q", "", "free-text search")
	f.StringVar(&opts.status, "status", "", "ALL, FRESH, WARNING, STALE or MISSING")
	f.StringVar(&opts.region, "region", "", "exact region")
	f.StringVar(&opts.entity, "entity", "", "exact entity (TODAS for all)")
	f.StringVar(&opts.level, "level", "", "exact care level")
	f.StringVar(&opts.macro, "macro", "", "macro-region name")

	f.BoolVar(&opts.summary, "summary", false, "print summary counts instead of records")
	f.BoolVar(&opts.stats, "stats", false, "print the statistics breakdown for --entity instead of records")
	cmd.MarkFlagsMutuallyExclusive("summary", "stats")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	if opts.now != "" {
		at, err := time.Parse(time.DateOnly, opts.now)
		if err != nil {
			return fmt.Errorf("invalid --now %q: %w", opts.now, err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(at))
		defer domain.SetClock(nil)
	}

	policy, err := domain.ParseDatePolicy(opts.datePolicy)
	if err != nil {
		return err
	}
	status, err := domain.ParseStatusFilter(opts.status)
	if err != nil {
		return err
	}
	macros := domain.MacroRegions
	if opts.macroFile != "" {
		if macros, err = domain.LoadMacroRegions(opts.macroFile); err != nil {
			return err
		}
	}

	catalogURL := firstNonEmpty(opts.catalogURL, os.Getenv("CATALOG_URL"), config.DefaultCatalogURL)
	linksURL := firstNonEmpty(opts.linksURL, os.Getenv("LINK_SHEET_URL"), config.DefaultLinkSheetURL)

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), opts.logLevel, "text")
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	r := pipeline.New(
		catalog.NewClient(catalogURL, opts.timeout, logger, metrics),
		linksheet.NewClient(linksURL, opts.timeout, logger, metrics),
		domain.NewClassifier(policy),
		logger, metrics,
	)
	snap, err := r.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	criteria := domain.FilterCriteria{
		Text:        opts.text,
		Status:      status,
		Region:      opts.region,
		Entity:      opts.entity,
		CareLevel:   opts.level,
		MacroRegion: opts.macro,
	}.Normalize()

	var result any
	switch {
	case opts.stats:
		result = statsOutput{Snapshot: snap, Stats: domain.Breakdown(snap.Records, opts.entity)}
	case opts.summary:
		matching := domain.FilterWith(snap.Records, criteria, macros)
		result = summaryOutput{Snapshot: snap, Criteria: criteria, Summary: domain.Summarize(snap.Records, matching)}
	default:
		matching := domain.FilterWith(snap.Records, criteria, macros)
		result = recordsOutput{Snapshot: snap, Criteria: criteria, Count: len(matching), Records: matching}
	}

	if opts.out == "" {
		return encodeJSON(cmd.OutOrStdout(), result)
	}
	return writeJSON(opts.out, result)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
