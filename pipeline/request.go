package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"adspy/config"
	"adspy/media"
	"adspy/types"
)

// ErrInvalidRequest marks a RunRequest that cannot start a run.
var ErrInvalidRequest = errors.New("invalid run request")

// Prepare validates req and fills in defaults. The returned request always
// has MinLikes, SheetName, Quality, Limit and Workers set; Workers is
// clamped to [1, MaxWorkers].
func Prepare(req types.RunRequest) (types.RunRequest, error) {
	req.SearchTerm = strings.TrimSpace(req.SearchTerm)
	req.ManualURL = strings.TrimSpace(req.ManualURL)
	req.FromCSV = strings.TrimSpace(req.FromCSV)
	req.RunID = strings.TrimSpace(req.RunID)

	if req.SearchTerm == "" && req.ManualURL == "" && req.FromCSV == "" && !req.DryRun {
		return req, fmt.Errorf("%w: search term, manual url or csv file is required", ErrInvalidRequest)
	}
	if req.Limit < 0 {
		return req, fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}
	if req.MinLikes != nil && *req.MinLikes < 0 {
		return req, fmt.Errorf("%w: min likes must not be negative", ErrInvalidRequest)
	}

	q, err := media.ParseQuality(req.Quality)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Quality = string(q)

	if req.MinLikes == nil {
		n := int64(config.DefaultMinLikes)
		req.MinLikes = &n
	}
	if req.Limit == 0 {
		req.Limit = config.DefaultLimit
	}
	if req.Country == "" {
		req.Country = config.DefaultCountry
	}
	if strings.TrimSpace(req.SheetName) == "" {
		req.SheetName = config.DefaultSheetName
	}
	req.Workers = config.ClampWorkers(req.Workers)
	return req, nil
}
