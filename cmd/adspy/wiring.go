package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"adspy/adlibrary"
	"adspy/analysis"
	"adspy/cache"
	"adspy/common"
	"adspy/config"
	"adspy/inference"
	"adspy/landing"
	"adspy/media"
	"adspy/pipeline"
	"adspy/sheets"
	"adspy/types"
)

// buildRunner wires providers, media handling, optional cache and archive,
// and the spreadsheet store into a Runner. cleanup releases connections.
func buildRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger, memorySheets bool) (*pipeline.Runner, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	retry := common.Retry{MaxAttempts: cfg.MaxRetries, BaseDelay: config.RetryBaseDelay, Logger: logger}
	policy := inference.Policy{Timeout: cfg.InferenceTimeout, Retry: retry}

	// Primary provider serves every tier; secondaries are appended when keyed
	openRouter := inference.NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterBaseURL, &http.Client{}, policy)
	videoModels := []analysis.Model{{Provider: openRouter, Name: cfg.PrimaryModel}}
	imageModels := []analysis.Model{{Provider: openRouter, Name: cfg.PrimaryModel}}
	textModels := []analysis.Model{{Provider: openRouter, Name: cfg.TextModel}}

	if cfg.GeminiKey != "" {
		gemini, err := inference.NewGemini(ctx, cfg.GeminiKey, policy)
		if err != nil {
			logger.Warn("Gemini unavailable; continuing without secondary video model", zap.Error(err))
		} else {
			videoModels = append(videoModels, analysis.Model{Provider: gemini, Name: cfg.SecondaryVideoModel})
			imageModels = append(imageModels, analysis.Model{Provider: gemini, Name: cfg.SecondaryVideoModel})
		}
	}
	if cfg.CohereKey != "" {
		textModels = append(textModels, analysis.Model{Provider: inference.NewCohere(cfg.CohereKey, policy), Name: cfg.CohereModel})
	}

	prep := media.NewPreparer(media.Options{
		HTTPClient:       &http.Client{},
		DownloadTimeout:  cfg.DownloadTimeout,
		TranscodeTimeout: cfg.TranscodeTimeout,
		FFmpegPath:       cfg.FFmpegPath,
	}, logger)

	base := analysis.Options{
		VideoModels:  videoModels,
		ImageModels:  imageModels,
		TextModels:   textModels,
		ImageRewrite: cfg.ImageRewrite,
	}

	if cfg.RedisAddr != "" {
		enrichCache, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPass, TTL: cfg.CacheTTL})
		if err != nil {
			logger.Warn("Redis unavailable; enrichment cache disabled", zap.Error(err))
		} else {
			base.Cache = enrichCache
			closers = append(closers, enrichCache.Close)
			logger.Info("Enrichment cache enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	extractor := landing.NewExtractor(&http.Client{}, cfg.DownloadTimeout, logger)

	deps := pipeline.Deps{
		Enrichers: func(req types.RunRequest) pipeline.Enricher {
			opts := base
			opts.Quality, _ = media.ParseQuality(req.Quality)
			if req.LandingPages {
				opts.Landing = extractor
			}
			return analysis.NewGateway(prep, opts, logger)
		},
		Logger: logger,
	}

	if cfg.ApifyToken != "" {
		deps.Scraper = adlibrary.NewApify(cfg.ApifyToken, logger, adlibrary.WithRetry(retry))
	}

	if cfg.S3Bucket != "" {
		archive, err := common.NewRunArchive(ctx, common.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Warn("S3 archive disabled", zap.Error(err))
		} else {
			deps.Archive = archive
		}
	}

	if memorySheets {
		deps.Store = sheets.NewMemory()
	} else {
		store, err := sheets.NewGoogle(ctx, cfg.ServiceAccountFile, cfg.UserEmail, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init google sheets: %w", err)
		}
		deps.Store = store
	}

	return pipeline.NewRunner(deps), cleanup, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
