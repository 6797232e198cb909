package media

import (
	"encoding/base64"
	"errors"
	"os"
	"sync"
)

var (
	// ErrUnsupportedFormat marks media whose sniffed type is outside the accepted set.
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrNoMedia means neither the video nor any preview image could be prepared.
	ErrNoMedia = errors.New("no usable media")
	// ErrTooLarge marks media above the configured byte ceiling.
	ErrTooLarge = errors.New("media exceeds size limit")
)

type Kind int

const (
	KindNone Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "none"
	}
}

// Asset is media ready to be attached to an inference request.
// Release must be called once the asset is no longer needed.
type Asset struct {
	Kind      Kind
	MIME      string
	Data      []byte
	SourceURL string
	// Path is the on-disk copy of a video; empty for images.
	Path string
	// Degraded is set when a video was replaced by its preview image.
	Degraded bool

	once sync.Once
}

// DataURI renders the asset as a base64 data URI.
func (a *Asset) DataURI() string {
	if a == nil || len(a.Data) == 0 {
		return ""
	}
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Release deletes every temporary file the asset owns. Safe to call more
// than once and on a nil asset.
func (a *Asset) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		if a.Path != "" {
			_ = os.Remove(a.Path)
		}
		a.Data = nil
	})
}
