package media

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

var imageFormats = []string{"image/gif", "image/jpeg", "image/png", "image/webp"}

// PrepareImage downloads an image and confirms its bytes are one of the
// formats the vision models accept. Anything else is ErrUnsupportedFormat.
func (p *Preparer) PrepareImage(ctx context.Context, url string) (*Asset, error) {
	if url == "" {
		return nil, ErrNoMedia
	}

	data, err := p.downloadBytes(ctx, url, p.maxImageBytes)
	if err != nil {
		return nil, err
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), imageFormats...) {
		return nil, fmt.Errorf("image %s is %s: %w", url, mt.String(), ErrUnsupportedFormat)
	}

	return &Asset{
		Kind:      KindImage,
		MIME:      mt.String(),
		Data:      data,
		SourceURL: url,
	}, nil
}
