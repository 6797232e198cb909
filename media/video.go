package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"adspy/config"
	"adspy/types"
)

var videoFormats = []string{"video/mp4", "video/mpeg", "video/quicktime", "video/webm"}

// sourceHeadroom is how far past the payload cap a medium-quality source
// may be before the download is abandoned instead of downscaled.
const sourceHeadroom = 4

// PrepareVideo obtains the best video the preset allows for rec. When no
// video can be prepared it falls back to the preview image and marks the
// asset Degraded. ErrNoMedia is returned when both routes fail.
func (p *Preparer) PrepareVideo(ctx context.Context, rec types.AdRecord, q Quality) (*Asset, error) {
	videoErr := error(ErrNoMedia)

	if q != QualityFast {
		for _, url := range videoCandidates(rec, q) {
			asset, err := p.prepareVideoURL(ctx, url, q)
			if err == nil {
				return asset, nil
			}
			videoErr = err
			p.logger.Warn("Video preparation failed",
				zap.String("ad_id", rec.ArchiveID),
				zap.String("url", url),
				zap.Error(err))
		}
	}

	for _, url := range uniqueNonEmpty(rec.VideoPreview, rec.PrimaryImageURL()) {
		asset, err := p.PrepareImage(ctx, url)
		if err != nil {
			p.logger.Warn("Preview image unusable",
				zap.String("ad_id", rec.ArchiveID),
				zap.String("url", url),
				zap.Error(err))
			continue
		}
		asset.Degraded = true
		return asset, nil
	}

	return nil, fmt.Errorf("ad %s: %w (last video error: %v)", rec.ArchiveID, ErrNoMedia, videoErr)
}

func (p *Preparer) prepareVideoURL(ctx context.Context, url string, q Quality) (*Asset, error) {
	id := uuid.NewString()
	src := filepath.Join(p.tempDir, "adspy-"+id+".src")

	limit := p.maxVideoBytes
	if q == QualityMedium {
		limit *= sourceHeadroom
	}

	size, err := p.downloadFile(ctx, url, src, limit)
	if err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(src)
	if err != nil {
		os.Remove(src)
		return nil, fmt.Errorf("sniff %s: %w", url, err)
	}

	path, mime := src, mt.String()

	height := 0
	if q == QualityMedium && size > p.maxVideoBytes {
		height = config.ReducedVideoHeight
	}

	if height > 0 || !mimetype.EqualsAny(mime, videoFormats...) {
		dst := filepath.Join(p.tempDir, "adspy-"+id+".mp4")
		tctx, cancel := context.WithTimeout(ctx, p.transcodeWait)
		err := p.transcode(tctx, src, dst, height)
		cancel()
		os.Remove(src)
		if err != nil {
			os.Remove(dst)
			return nil, fmt.Errorf("transcode %s (%s): %w", url, mime, err)
		}
		path, mime = dst, "video/mp4"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("read prepared video: %w", err)
	}
	if int64(len(data)) > p.maxVideoBytes {
		os.Remove(path)
		return nil, fmt.Errorf("%s after transcode: %w", url, ErrTooLarge)
	}

	p.logger.Debug("Video prepared",
		zap.String("url", url),
		zap.String("mime", mime),
		zap.Int("bytes", len(data)))

	return &Asset{
		Kind:      KindVideo,
		MIME:      mime,
		Data:      data,
		SourceURL: url,
		Path:      path,
	}, nil
}

func videoCandidates(rec types.AdRecord, q Quality) []string {
	if q == QualityHigh {
		return uniqueNonEmpty(rec.VideoHDURL, rec.VideoSDURL)
	}
	return uniqueNonEmpty(rec.VideoSDURL, rec.VideoHDURL)
}

func uniqueNonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// FFmpegTranscoder rewrites videos into H.264/AAC mp4 with ffmpeg.
// An empty ffmpegPath uses the binary on PATH.
func FFmpegTranscoder(ffmpegPath string) Transcoder {
	return func(ctx context.Context, src, dst string, height int) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		args := ffmpeg.KwArgs{
			"c:v":      config.VideoCodec,
			"c:a":      config.AudioCodec,
			"preset":   config.VideoPreset,
			"movflags": "+faststart",
		}
		if height > 0 {
			args["vf"] = fmt.Sprintf("scale=-2:%d", height)
		}

		stream := ffmpeg.Input(src).Output(dst, args).OverWriteOutput()
		if ffmpegPath != "" {
			stream = stream.SetFfmpegPath(ffmpegPath)
		}

		// The compiled command is rebuilt so ctx kills a hung ffmpeg.
		compiled := stream.Compile()
		cmd := exec.CommandContext(ctx, compiled.Path, compiled.Args[1:]...)
		cmd.WaitDelay = 5 * time.Second
		if out, err := cmd.CombinedOutput(); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ffmpeg stopped: %w", ctx.Err())
			}
			return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(out, 512))
		}
		return nil
	}
}

// tail keeps the last n bytes of ffmpeg's output, where the error is.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.ToValidUTF8(string(b), "")
}
