package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"adspy/config"
	"adspy/types"
)

var headers = map[string][]any{
	config.RawTab:       RawHeader,
	config.ProcessedTab: ProcessedHeader,
}

// DualWriter writes a run's outcomes to the raw and processed tabs with a
// single bulk append per tab.
type DualWriter struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewDualWriter(store Store, logger *zap.Logger) *DualWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DualWriter{store: store, logger: logger, now: time.Now}
}

// Open creates or reuses the run's spreadsheet and writes headers on any
// tab that did not exist yet. Failure here is fatal for the run.
func (w *DualWriter) Open(ctx context.Context, name string) (Handle, error) {
	h, err := w.store.CreateOrReuse(ctx, name, []string{config.RawTab, config.ProcessedTab})
	if err != nil {
		return Handle{}, fmt.Errorf("open spreadsheet %q: %w", name, err)
	}

	for _, tab := range h.NewTabs {
		if err := w.store.AppendRows(ctx, h, tab, [][]any{headers[tab]}); err != nil {
			return Handle{}, fmt.Errorf("write %s header: %w", tab, err)
		}
		if err := w.store.FormatHeader(ctx, h, tab); err != nil {
			w.logger.Warn("Header formatting failed", zap.String("tab", tab), zap.Error(err))
		}
	}
	h.NewTabs = nil

	w.logger.Info("Spreadsheet ready", zap.String("name", h.Name), zap.String("url", h.URL))
	return h, nil
}

// Write appends one raw row and one processed row per outcome. The two
// appends run independently; a failure in one does not stop the other.
func (w *DualWriter) Write(ctx context.Context, h Handle, outcomes []types.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	added := w.now()
	raw := make([][]any, len(outcomes))
	processed := make([][]any, len(outcomes))
	for i, o := range outcomes {
		raw[i] = RawRow(o)
		processed[i] = ProcessedRow(o, added)
	}

	var (
		wg      sync.WaitGroup
		rawErr  error
		procErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rawErr = w.append(ctx, h, config.RawTab, raw)
	}()
	go func() {
		defer wg.Done()
		procErr = w.append(ctx, h, config.ProcessedTab, processed)
	}()
	wg.Wait()

	return errors.Join(rawErr, procErr)
}

func (w *DualWriter) append(ctx context.Context, h Handle, tab string, rows [][]any) error {
	if err := w.store.AppendRows(ctx, h, tab, rows); err != nil {
		w.logger.Error("Sheet append failed", zap.String("tab", tab), zap.Int("rows", len(rows)), zap.Error(err))
		return fmt.Errorf("append %d rows to %s: %w", len(rows), tab, err)
	}
	w.logger.Info("Rows appended", zap.String("tab", tab), zap.Int("rows", len(rows)))
	return nil
}
