// Command adspy scrapes competitor ads from the Meta Ad Library, enriches
// them with multimodal models and writes the results to Google Sheets.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adspy/api"
	"adspy/common"
	"adspy/config"
	"adspy/pipeline"
	"adspy/shared/kafka"
	"adspy/types"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	// run flags
	minLikes     int64
	sheetName    string
	activeOnly   bool
	country      string
	limit        int
	manualURL    string
	quality      string
	workers      int
	dryRun       bool
	fromCSV      string
	imageRewrite bool
	landingPages bool
	noSheets     bool
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:   "adspy",
	Short: "Meta Ad Library spy: scrape, enrich and export competitor ads",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		var err error
		logger, err = common.NewLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if cmd.Flags().Changed("image-rewrite") {
			cfg.ImageRewrite = imageRewrite
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run [search term]",
	Short: "Run one scrape and enrichment pass",
	Long: `Scrapes the Ad Library for the search term (or --url), filters by page
likes, enriches every ad by media type and appends the results to the
"Raw Data" and "Processed Data" tabs of the spreadsheet.`,
	Args: cobra.ArbitraryArgs,
	RunE: runOnce,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP run API",
	RunE:  serve,
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume run requests from Kafka",
	RunE:  consume,
}

func init() {
	f := runCmd.Flags()
	f.Int64Var(&minLikes, "min-likes", config.DefaultMinLikes, "Minimum page likes (0 disables the filter)")
	f.StringVar(&sheetName, "sheet-name", config.DefaultSheetName, "Spreadsheet name")
	f.BoolVar(&activeOnly, "active-only", false, "Only scrape ads that are currently active")
	f.StringVar(&country, "country", config.DefaultCountry, "Ad Library country code")
	f.IntVar(&limit, "limit", config.DefaultLimit, "Maximum number of ads to scrape")
	f.StringVar(&manualURL, "url", "", "Scrape this Ad Library URL instead of building a search")
	f.StringVar(&quality, "quality", config.DefaultQuality, "Video handling preset: high, medium or fast")
	f.IntVar(&workers, "workers", config.DefaultWorkers, fmt.Sprintf("Ads enriched in parallel (max %d)", config.MaxWorkers))
	f.BoolVar(&dryRun, "dry-run", false, "Use the built-in mock ads instead of scraping")
	f.StringVar(&fromCSV, "from-csv", "", "Load ads from an exported CSV file instead of scraping")
	f.BoolVar(&landingPages, "landing-pages", false, "Add landing page text to text-tier prompts")
	f.BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")

	rootCmd.PersistentFlags().BoolVar(&imageRewrite, "image-rewrite", true, "Ask image analysis for rewritten copy (overrides IMAGE_REWRITE)")
	rootCmd.PersistentFlags().BoolVar(&noSheets, "no-sheets", false, "Keep results in memory instead of Google Sheets")

	rootCmd.AddCommand(runCmd, serveCmd, consumeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	req := types.RunRequest{
		SearchTerm:   strings.Join(args, " "),
		Country:      country,
		ActiveOnly:   activeOnly,
		Limit:        limit,
		ManualURL:    manualURL,
		MinLikes:     &minLikes,
		SheetName:    sheetName,
		Quality:      quality,
		Workers:      workers,
		DryRun:       dryRun,
		FromCSV:      fromCSV,
		LandingPages: landingPages,
	}
	if _, err := pipeline.Prepare(req); err != nil {
		return err
	}

	needScraper := !dryRun && fromCSV == ""
	if err := cfg.Validate(needScraper, !noSheets); err != nil {
		return err
	}

	runner, cleanup, err := buildRunner(ctx, cfg, logger, noSheets)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := runner.Run(ctx, req)
	if report != nil {
		if jsonOutput {
			if encErr := printJSON(cmd.OutOrStdout(), report); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), pipeline.RenderReport(report))
		}
	}
	return err
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	if err := cfg.Validate(false, !noSheets); err != nil {
		return err
	}
	runner, cleanup, err := buildRunner(ctx, cfg, logger, noSheets)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(runner, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting API server", zap.String("addr", srv.Addr))
	logger.Info("API endpoints available: GET /api/health, POST /api/runs")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func consume(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	if err := cfg.Validate(false, !noSheets); err != nil {
		return err
	}
	runner, cleanup, err := buildRunner(ctx, cfg, logger, noSheets)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := &kafka.TypedMessageHandler[types.RunRequest]{
		Validate: func(msg *types.RunRequest) error {
			_, err := pipeline.Prepare(*msg)
			return err
		},
		Process: func(ctx context.Context, msg *types.RunRequest) error {
			report, err := runner.Run(ctx, *msg)
			if report != nil {
				logger.Info("Run finished",
					zap.String("run_id", report.RunID),
					zap.String("sheet_url", report.SheetURL))
			}
			return err
		},
		AlwaysMark: true,
		Logger:     logger,
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
		Handler: handler,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start kafka consumer: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutting down consumer")
	return nil
}
