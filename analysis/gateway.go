// Package analysis turns ad records into model generated enrichment.
package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"adspy/inference"
	"adspy/media"
	"adspy/types"
)

// Tier is one rung of the fallback ladder.
type Tier int

const (
	TierText Tier = iota
	TierImage
	TierVideo
)

func (t Tier) String() string {
	switch t {
	case TierVideo:
		return "video"
	case TierImage:
		return "image"
	default:
		return "text"
	}
}

// Model binds a provider to a model identifier.
type Model struct {
	Provider inference.Provider
	Name     string
}

func (m Model) label() string { return m.Provider.Name() + "/" + m.Name }

// Preparer fetches the creative for the image and video tiers.
type Preparer interface {
	PrepareImage(ctx context.Context, url string) (*media.Asset, error)
	PrepareVideo(ctx context.Context, rec types.AdRecord, q media.Quality) (*media.Asset, error)
}

// Cache stores parsed results between runs.
type Cache interface {
	Get(ctx context.Context, key string) (types.EnrichmentResult, bool, error)
	Put(ctx context.Context, key string, res types.EnrichmentResult) error
}

// LandingSource returns readable text for an ad's destination page.
type LandingSource interface {
	Excerpt(ctx context.Context, url string) (string, error)
}

type Options struct {
	VideoModels  []Model
	ImageModels  []Model
	TextModels   []Model
	Quality      media.Quality
	ImageRewrite bool

	// Optional collaborators
	Cache   Cache
	Landing LandingSource
}

// Gateway produces an EnrichmentResult for each record by walking the
// tier ladder from the record's media class down to text.
type Gateway struct {
	prep   Preparer
	opts   Options
	logger *zap.Logger
}

func NewGateway(prep Preparer, opts Options, logger *zap.Logger) *Gateway {
	if opts.Quality == "" {
		opts.Quality = media.QualityMedium
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{prep: prep, opts: opts, logger: logger}
}

// step is the tagged union driving the ladder: the tier to attempt next
// and, for image steps entered from video, the preview asset to reuse.
type step struct {
	tier  Tier
	asset *media.Asset
}

func startTier(class types.MediaClass) Tier {
	switch class {
	case types.MediaVideo:
		return TierVideo
	case types.MediaImage:
		return TierImage
	default:
		return TierText
	}
}

// Enrich never fails; problems surface as Degraded or Skipped results.
func (g *Gateway) Enrich(ctx context.Context, rec types.AdRecord, class types.MediaClass) types.EnrichmentResult {
	key := g.cacheKey(rec, class)
	if g.opts.Cache != nil && key != "" {
		cached, ok, err := g.opts.Cache.Get(ctx, key)
		if err != nil {
			g.logger.Warn("Enrichment cache read failed", zap.String("ad_id", rec.ArchiveID), zap.Error(err))
		} else if ok {
			cached.Cached = true
			return cached
		}
	}

	res := g.drive(ctx, rec, class)

	// Degraded results reflect a transient outage and are asked again next run.
	if g.opts.Cache != nil && key != "" && res.Status == types.StatusSuccess {
		if err := g.opts.Cache.Put(ctx, key, res); err != nil {
			g.logger.Warn("Enrichment cache write failed", zap.String("ad_id", rec.ArchiveID), zap.Error(err))
		}
	}
	return res
}

func (g *Gateway) drive(ctx context.Context, rec types.AdRecord, class types.MediaClass) types.EnrichmentResult {
	start := startTier(class)
	cur := &step{tier: start}
	var notes []string
	degraded := false

	for cur != nil {
		if ctx.Err() != nil {
			cur.asset.Release()
			res := types.Skipped("cancelled")
			res.Notes = append(notes, res.Notes...)
			return res
		}

		res, next, note := g.attempt(ctx, rec, cur)
		if note != "" {
			notes = append(notes, note)
		}
		if res != nil {
			if degraded || cur.tier != start || res.Status == types.StatusDegraded {
				res.Status = types.StatusDegraded
			}
			res.Notes = notes
			g.logger.Debug("Ad enriched",
				zap.String("ad_id", rec.ArchiveID),
				zap.String("tier", res.Tier),
				zap.String("model", res.Model),
				zap.String("status", string(res.Status)))
			return *res
		}

		g.logger.Warn("Analysis tier failed",
			zap.String("ad_id", rec.ArchiveID),
			zap.Stringer("tier", cur.tier),
			zap.String("reason", note))
		degraded = true
		cur = next
	}

	res := types.Skipped("")
	res.Notes = append(notes, "all tiers exhausted")
	return res
}

// attempt runs a single tier. It returns either a result or the next step.
func (g *Gateway) attempt(ctx context.Context, rec types.AdRecord, s *step) (*types.EnrichmentResult, *step, string) {
	switch s.tier {
	case TierVideo:
		asset, err := g.prep.PrepareVideo(ctx, rec, g.opts.Quality)
		if err != nil {
			return nil, &step{tier: TierText}, fmt.Sprintf("video unavailable: %v", err)
		}
		if asset.Kind != media.KindVideo {
			return nil, &step{tier: TierImage, asset: asset}, "video replaced by preview image"
		}
		defer asset.Release()

		res, note := g.callModels(ctx, TierVideo, g.opts.VideoModels, buildVideoPrompt(rec), asset)
		if res == nil {
			if rec.VideoPreview == "" && rec.PrimaryImageURL() == "" {
				return nil, &step{tier: TierText}, note
			}
			return nil, &step{tier: TierImage, asset: g.previewAsset(ctx, rec.VideoPreview)}, note
		}
		res.ImagePrompt = ""
		return res, nil, note

	case TierImage:
		asset := s.asset
		if asset == nil {
			var err error
			asset, err = g.prep.PrepareImage(ctx, rec.PrimaryImageURL())
			if err != nil {
				return nil, &step{tier: TierText}, fmt.Sprintf("image unavailable: %v", err)
			}
		}
		defer asset.Release()

		res, note := g.callModels(ctx, TierImage, g.opts.ImageModels, buildImagePrompt(rec, g.opts.ImageRewrite), asset)
		if res == nil {
			return nil, &step{tier: TierText}, note
		}
		res.VideoPrompt = ""
		if !g.opts.ImageRewrite {
			res.RewrittenCopy = ""
		}
		return res, nil, note

	default:
		res, note := g.callModels(ctx, TierText, g.opts.TextModels, buildTextPrompt(rec, g.landingExcerpt(ctx, rec)), nil)
		if res == nil {
			return nil, nil, note
		}
		res.ImagePrompt = ""
		res.VideoPrompt = ""
		return res, nil, note
	}
}

// previewAsset fetches the preview image for a video whose models all
// failed. A nil asset makes the image step fetch the record's image.
func (g *Gateway) previewAsset(ctx context.Context, url string) *media.Asset {
	if url == "" {
		return nil
	}
	asset, err := g.prep.PrepareImage(ctx, url)
	if err != nil {
		return nil
	}
	return asset
}

// callModels tries each model in order. Any model after the first marks
// the result Degraded.
func (g *Gateway) callModels(ctx context.Context, tier Tier, models []Model, prompt string, asset *media.Asset) (*types.EnrichmentResult, string) {
	if len(models) == 0 {
		return nil, fmt.Sprintf("%s tier: no models configured", tier)
	}

	req := inference.Request{Prompt: prompt, JSON: true}
	if asset != nil {
		req.Media = &inference.Media{MIME: asset.MIME, DataURI: asset.DataURI(), Data: asset.Data}
	}

	var note string
	for i, m := range models {
		req.Model = m.Name
		reply, err := m.Provider.Complete(ctx, req)
		if err != nil {
			note = fmt.Sprintf("%s: %v", m.label(), err)
			g.logger.Warn("Model call failed", zap.String("model", m.label()), zap.Error(err))
			continue
		}

		res, ok := ParseReply(reply)
		if !ok {
			note = fmt.Sprintf("%s: unparseable reply", m.label())
			continue
		}

		res.Tier = tier.String()
		res.Model = m.label()
		if i > 0 {
			res.Status = types.StatusDegraded
			note = fmt.Sprintf("%s tier served by secondary model %s", tier, m.label())
		}
		return &res, note
	}
	return nil, note
}

func (g *Gateway) landingExcerpt(ctx context.Context, rec types.AdRecord) string {
	if g.opts.Landing == nil || rec.LinkURL == "" {
		return ""
	}
	text, err := g.opts.Landing.Excerpt(ctx, rec.LinkURL)
	if err != nil {
		g.logger.Debug("Landing page extraction failed", zap.String("url", rec.LinkURL), zap.Error(err))
		return ""
	}
	return text
}

// cacheKey scopes a result to the settings that shape it.
func (g *Gateway) cacheKey(rec types.AdRecord, class types.MediaClass) string {
	if rec.ArchiveID == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:rewrite=%t", rec.ArchiveID, class, g.opts.Quality, g.opts.ImageRewrite)
}
