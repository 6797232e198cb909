package types

import (
	"encoding/json"
	"time"
)

// AdRecord is a single scraped advertisement after normalization.
// ArchiveID is the join key between the raw and processed sheet rows.
type AdRecord struct {
	ArchiveID     string          `json:"ad_archive_id"`
	PageID        string          `json:"page_id,omitempty"`
	PageName      string          `json:"page_name,omitempty"`
	PageURL       string          `json:"page_url,omitempty"`
	PageLikes     int64           `json:"page_like_count"`
	Text          string          `json:"ad_text,omitempty"`
	CTAText       string          `json:"cta_text,omitempty"`
	LinkURL       string          `json:"link_url,omitempty"`
	DisplayFormat string          `json:"display_format,omitempty"`
	PublishedAt   time.Time       `json:"published_at"`
	Platforms     []string        `json:"platforms,omitempty"`
	VideoSDURL    string          `json:"video_sd_url,omitempty"`
	VideoHDURL    string          `json:"video_hd_url,omitempty"`
	VideoPreview  string          `json:"video_preview_image_url,omitempty"`
	ImageURL      string          `json:"original_image_url,omitempty"`
	ResizedImage  string          `json:"resized_image_url,omitempty"`
	Source        json.RawMessage `json:"source"`
	Index         int             `json:"-"`
}

// VideoURL returns the first populated video URL, SD before HD.
func (a *AdRecord) VideoURL() string {
	if a.VideoSDURL != "" {
		return a.VideoSDURL
	}
	return a.VideoHDURL
}

// PrimaryImageURL returns the original image, falling back to the resized one.
func (a *AdRecord) PrimaryImageURL() string {
	if a.ImageURL != "" {
		return a.ImageURL
	}
	return a.ResizedImage
}

// MediaClass is the creative type of an ad.
type MediaClass int

const (
	MediaText MediaClass = iota
	MediaImage
	MediaVideo
)

func (m MediaClass) String() string {
	switch m {
	case MediaVideo:
		return "Video"
	case MediaImage:
		return "Image"
	default:
		return "Text"
	}
}

// MarshalText lets MediaClass show up by name in JSON reports.
func (m MediaClass) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
