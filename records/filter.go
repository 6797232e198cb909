package records

import (
	"encoding/json"

	"go.uber.org/zap"

	"adspy/types"
)

// NormalizeAll normalizes a scraped batch, dropping entries that are not
// JSON objects. The surviving records keep their relative order.
func NormalizeAll(raw []json.RawMessage, logger *zap.Logger) []types.AdRecord {
	out := make([]types.AdRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := Normalize(item)
		if err != nil {
			logger.Warn("Dropping malformed ad record", zap.Int("position", i), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out
}

// FilterByLikes keeps records whose page like count is at least minLikes
// and assigns each survivor its position in the filtered batch.
// A threshold of zero keeps everything.
func FilterByLikes(recs []types.AdRecord, minLikes int64) []types.AdRecord {
	out := make([]types.AdRecord, 0, len(recs))
	for _, r := range recs {
		if minLikes > 0 && r.PageLikes < minLikes {
			continue
		}
		r.Index = len(out)
		out = append(out, r)
	}
	return out
}
