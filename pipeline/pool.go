// Package pipeline runs one end-to-end enrichment pass: fetch ads, filter,
// enrich them in parallel and write both sheet tabs.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adspy/config"
	"adspy/records"
	"adspy/types"
)

// EnrichFunc produces the result for a single record. It must not fail;
// failures are expressed as Degraded or Skipped results.
type EnrichFunc func(ctx context.Context, rec types.AdRecord, class types.MediaClass) types.EnrichmentResult

// Process enriches recs with at most workers records in flight and returns
// one outcome per record in input order.
func Process(ctx context.Context, recs []types.AdRecord, workers int, enrich EnrichFunc, logger *zap.Logger) []types.Outcome {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers = config.ClampWorkers(workers)

	out := make([]types.Outcome, len(recs))
	for i, rec := range recs {
		out[i] = types.Outcome{Record: rec, Class: records.Classify(rec)}
	}

	logger.Info("Processing ads", zap.Int("count", len(recs)), zap.Int("workers", workers))

	// Workers never return an error, so one record cannot cancel the others
	var g errgroup.Group
	g.SetLimit(workers)

	for i := range out {
		if ctx.Err() != nil {
			out[i].Result = types.Skipped("cancelled")
			continue
		}
		g.Go(func() error {
			out[i].Result = enrichOne(ctx, out[i], enrich, logger)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func enrichOne(ctx context.Context, o types.Outcome, enrich EnrichFunc, logger *zap.Logger) (res types.EnrichmentResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic while enriching ad",
				zap.String("ad_id", o.Record.ArchiveID),
				zap.Any("panic", r))
			res = types.Skipped(fmt.Sprintf("panic: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return types.Skipped("cancelled")
	}

	logger.Debug("Processing ad",
		zap.String("ad_id", o.Record.ArchiveID),
		zap.Stringer("type", o.Class))

	res = enrich(ctx, o.Record, o.Class)

	logger.Info("Processed ad",
		zap.String("ad_id", o.Record.ArchiveID),
		zap.Stringer("type", o.Class),
		zap.String("status", string(res.Status)),
		zap.String("model", res.Model))
	return res
}
