package media

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"adspy/config"
)

// Quality selects how hard the preparer works to obtain a video.
type Quality string

const (
	// QualityHigh prefers the HD rendition and never downscales.
	QualityHigh Quality = "high"
	// QualityMedium prefers SD and downscales oversized sources.
	QualityMedium Quality = "medium"
	// QualityFast skips video downloads and uses the preview image.
	QualityFast Quality = "fast"
)

// ParseQuality maps a flag value to a Quality. Empty selects medium.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case "":
		return QualityMedium, nil
	case QualityHigh, QualityMedium, QualityFast:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality preset %q (want high, medium or fast)", s)
	}
}

// Transcoder rewrites src into an mp4 at dst. A height above zero scales
// the output down to that many lines.
type Transcoder func(ctx context.Context, src, dst string, height int) error

type Options struct {
	HTTPClient      *http.Client
	DownloadTimeout time.Duration
	TempDir         string
	FFmpegPath      string
	MaxVideoBytes   int64
	MaxImageBytes   int64
	Transcoder      Transcoder

	// TranscodeTimeout bounds each ffmpeg run. A timeout counts as a
	// failed video, so the preview image is used instead.
	TranscodeTimeout time.Duration
}

// Preparer downloads and validates ad creative for the analysis tiers.
type Preparer struct {
	client          *http.Client
	downloadTimeout time.Duration
	transcodeWait   time.Duration
	tempDir         string
	maxVideoBytes   int64
	maxImageBytes   int64
	transcode       Transcoder
	logger          *zap.Logger
}

func NewPreparer(opts Options, logger *zap.Logger) *Preparer {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = config.DefaultDownloadWait
	}
	if opts.TranscodeTimeout <= 0 {
		opts.TranscodeTimeout = config.DefaultTranscodeWait
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.MaxVideoBytes <= 0 {
		opts.MaxVideoBytes = config.MaxVideoBytes
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = config.MaxImageBytes
	}
	if opts.Transcoder == nil {
		opts.Transcoder = FFmpegTranscoder(opts.FFmpegPath)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Preparer{
		client:          opts.HTTPClient,
		downloadTimeout: opts.DownloadTimeout,
		transcodeWait:   opts.TranscodeTimeout,
		tempDir:         opts.TempDir,
		maxVideoBytes:   opts.MaxVideoBytes,
		maxImageBytes:   opts.MaxImageBytes,
		transcode:       opts.Transcoder,
		logger:          logger,
	}
}
