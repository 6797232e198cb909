package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adspy/adlibrary"
	"adspy/config"
	"adspy/records"
	"adspy/sheets"
	"adspy/types"
)

// Enricher is the per-record analysis step, normally an *analysis.Gateway.
type Enricher interface {
	Enrich(ctx context.Context, rec types.AdRecord, class types.MediaClass) types.EnrichmentResult
}

// EnricherFactory builds the enricher for one run. Quality and landing page
// lookups are chosen per request.
type EnricherFactory func(req types.RunRequest) Enricher

// Archive receives the run's source batch and report.
type Archive interface {
	PutJSON(ctx context.Context, runID, name string, v any) error
	Exists(ctx context.Context, runID, name string) (bool, error)
}

// Deps are the collaborators a Runner needs. Scraper and Archive are
// optional: without a scraper only dry runs and CSV imports work.
type Deps struct {
	Scraper   adlibrary.Source
	Enrichers EnricherFactory
	Store     sheets.Store
	Archive   Archive
	Logger    *zap.Logger
}

// Runner executes pipeline runs. It is safe to call Run concurrently.
type Runner struct {
	scraper   adlibrary.Source
	enrichers EnricherFactory
	writer    *sheets.DualWriter
	archive   Archive
	logger    *zap.Logger
	now       func() time.Time
}

func NewRunner(d Deps) *Runner {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		scraper:   d.Scraper,
		enrichers: d.Enrichers,
		writer:    sheets.NewDualWriter(d.Store, logger),
		archive:   d.Archive,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs one end-to-end cycle: fetch, normalize, filter, open the
// spreadsheet, enrich in parallel, write both tabs, archive.
// Configuration problems and spreadsheet creation failures abort the run
// before any record is enriched. A failed tab write is returned alongside
// a complete report.
func (r *Runner) Run(ctx context.Context, req types.RunRequest) (*types.RunReport, error) {
	req, err := Prepare(req)
	if err != nil {
		return nil, err
	}

	started := r.now()
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &types.RunReport{
		RunID:     runID,
		Counts:    make(map[types.Status]int),
		ByType:    make(map[string]int),
		StartedAt: started.UTC().Format(time.RFC3339),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Starting run",
		zap.String("search_term", req.SearchTerm),
		zap.Bool("dry_run", req.DryRun),
		zap.String("quality", req.Quality),
		zap.Int("workers", req.Workers))

	// Step 1: fetch raw ads
	src, err := r.source(req)
	if err != nil {
		return nil, err
	}
	raw, err := src.Fetch(ctx, adlibrary.Query{
		SearchTerm: req.SearchTerm,
		Country:    req.Country,
		ActiveOnly: req.ActiveOnly,
		Limit:      req.Limit,
		ManualURL:  req.ManualURL,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch ads: %w", err)
	}

	// Step 2: normalize and filter
	recs := records.NormalizeAll(raw, logger)
	filtered := records.FilterByLikes(recs, *req.MinLikes)
	report.Scraped = len(recs)
	report.Filtered = len(filtered)
	logger.Info("Filtered ads",
		zap.Int("scraped", len(recs)),
		zap.Int("kept", len(filtered)),
		zap.Int64("min_likes", *req.MinLikes))

	// Step 3: spreadsheet must exist before any enrichment is paid for
	h, err := r.writer.Open(ctx, req.SheetName)
	if err != nil {
		return nil, err
	}
	report.SheetURL = h.URL

	// Step 4: enrich
	enricher := r.enrichers(req)
	outcomes := Process(ctx, filtered, req.Workers, enricher.Enrich, logger)
	report.Outcomes = outcomes
	for _, o := range outcomes {
		report.Counts[o.Result.Status]++
		report.ByType[o.Class.String()]++
	}

	// Step 5: one append per tab
	writeErr := r.writer.Write(ctx, h, outcomes)
	if writeErr != nil {
		report.WriteErr = writeErr.Error()
		logger.Error("Writing results failed", zap.Error(writeErr))
	}

	report.Duration = r.now().Sub(started).Round(time.Millisecond).String()

	// Step 6: optional archive
	if r.archive != nil {
		report.Archived = r.archiveRun(ctx, report, raw, logger)
	} else {
		logger.Debug("Archive not configured; skipping upload")
	}

	logger.Info("Run complete",
		zap.Int("success", report.Counts[types.StatusSuccess]),
		zap.Int("degraded", report.Counts[types.StatusDegraded]),
		zap.Int("skipped", report.Counts[types.StatusSkipped]),
		zap.String("sheet_url", report.SheetURL))

	if writeErr != nil {
		return report, fmt.Errorf("write results: %w", writeErr)
	}
	return report, nil
}

func (r *Runner) source(req types.RunRequest) (adlibrary.Source, error) {
	switch {
	case req.FromCSV != "":
		return adlibrary.CSVFile{Path: req.FromCSV}, nil
	case req.DryRun:
		return adlibrary.Mock{}, nil
	case r.scraper != nil:
		return r.scraper, nil
	default:
		return nil, fmt.Errorf("%w: APIFY_TOKEN", config.ErrMissingCredential)
	}
}

func (r *Runner) archiveRun(ctx context.Context, report *types.RunReport, raw []json.RawMessage, logger *zap.Logger) bool {
	uctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// A retried run keeps the batch its first attempt scraped
	exists, err := r.archive.Exists(uctx, report.RunID, "source.json")
	if err != nil {
		logger.Warn("Run archive lookup failed", zap.String("object", "source.json"), zap.Error(err))
	}
	if exists {
		logger.Info("Source batch already archived", zap.String("object", "source.json"))
	} else if err := r.archive.PutJSON(uctx, report.RunID, "source.json", raw); err != nil {
		logger.Warn("Run archive upload failed", zap.String("object", "source.json"), zap.Error(err))
		return false
	}

	// The archived report records itself as archived
	report.Archived = true
	if err := r.archive.PutJSON(uctx, report.RunID, "report.json", report); err != nil {
		report.Archived = false
		logger.Warn("Run archive upload failed", zap.String("object", "report.json"), zap.Error(err))
		return false
	}
	logger.Info("Uploaded run archive")
	return true
}
