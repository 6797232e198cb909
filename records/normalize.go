package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"adspy/types"
)

// isoLayouts are tried in order when a publish date arrives as a string.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	originalImagePaths = []string{
		"originalImageUrl", "original_image_url",
		"snapshot.images.0.original_image_url", "snapshot.cards.0.original_image_url",
	}
	resizedImagePaths = []string{
		"imageUrl", "resized_image_url",
		"snapshot.images.0.resized_image_url", "snapshot.cards.0.resized_image_url",
	}
)

// Normalize converts one raw scraped ad object into an AdRecord.
// Missing or unparseable fields are left empty; only input that is not a
// JSON object is rejected.
func Normalize(raw json.RawMessage) (types.AdRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return types.AdRecord{}, fmt.Errorf("decode ad record: %w", err)
	}
	if obj == nil {
		return types.AdRecord{}, fmt.Errorf("decode ad record: not an object")
	}

	src := make(json.RawMessage, len(raw))
	copy(src, raw)

	rec := types.AdRecord{
		ArchiveID:     firstString(obj, "adArchiveID", "ad_archive_id", "adArchiveId"),
		PageID:        firstString(obj, "pageID", "page_id", "pageId", "snapshot.page_id"),
		PageName:      firstString(obj, "pageName", "page_name", "snapshot.page_name"),
		PageURL:       firstString(obj, "pageProfileUri", "page_profile_uri", "snapshot.page_profile_uri"),
		PageLikes:     firstCount(obj, "snapshot.page_like_count", "pageLikeCount", "page_like_count"),
		Text:          firstString(obj, "adCreativeBody", "snapshot.body.text", "snapshot.body"),
		CTAText:       firstString(obj, "snapshot.cta_text", "ctaText", "cta_text"),
		LinkURL:       firstString(obj, "snapshot.link_url", "linkUrl", "link_url"),
		DisplayFormat: firstString(obj, "snapshot.display_format", "displayFormat", "display_format"),
		PublishedAt:   firstTime(obj, "startDate", "start_date"),
		Platforms:     firstStrings(obj, "publisherPlatform", "publisher_platform"),
		VideoSDURL:    firstString(obj, "video_sd_url", "snapshot.videos.0.video_sd_url"),
		VideoHDURL:    firstString(obj, "video_hd_url", "snapshot.videos.0.video_hd_url"),
		VideoPreview:  firstString(obj, "video_preview_image_url", "snapshot.videos.0.video_preview_image_url"),
		ImageURL:      firstString(obj, originalImagePaths...),
		ResizedImage:  firstString(obj, resizedImagePaths...),
		Source:        src,
	}
	return rec, nil
}

// ParsePublishTime accepts a UNIX epoch (seconds or milliseconds, number or
// numeric string) or an ISO-8601 string. ok is false when nothing parses.
func ParsePublishTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpoch(n)
		}
		if f, err := t.Float64(); err == nil {
			return fromEpoch(int64(f))
		}
	case float64:
		return fromEpoch(int64(t))
	case int64:
		return fromEpoch(t)
	case int:
		return fromEpoch(int64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(n)
		}
		for _, layout := range isoLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func fromEpoch(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	// Values this large are milliseconds
	if n > 1e12 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// lookup walks a dotted path through nested objects and arrays.
func lookup(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func firstString(obj map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := lookup(obj, p)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		case json.Number:
			return s.String()
		}
	}
	return ""
}

func firstCount(obj map[string]any, paths ...string) int64 {
	for _, p := range paths {
		v, ok := lookup(obj, p)
		if !ok {
			continue
		}
		var n int64
		var err error
		switch c := v.(type) {
		case json.Number:
			n, err = c.Int64()
			if err != nil {
				var f float64
				f, err = c.Float64()
				n = int64(f)
			}
		case string:
			n, err = strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(c), ",", ""), 10, 64)
		default:
			continue
		}
		if err != nil {
			continue
		}
		if n < 0 {
			return 0
		}
		return n
	}
	return 0
}

func firstTime(obj map[string]any, paths ...string) time.Time {
	for _, p := range paths {
		v, ok := lookup(obj, p)
		if !ok {
			continue
		}
		if ts, ok := ParsePublishTime(v); ok {
			return ts
		}
	}
	return time.Time{}
}

func firstStrings(obj map[string]any, paths ...string) []string {
	for _, p := range paths {
		v, ok := lookup(obj, p)
		if !ok {
			continue
		}
		switch list := v.(type) {
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if s := strings.TrimSpace(list); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}
