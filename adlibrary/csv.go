package adlibrary

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVFile loads ads exported from the Apify console as flattened CSV.
// Column names use slash separated paths such as "snapshot/body/text".
type CSVFile struct {
	Path string
}

func (c CSVFile) Fetch(ctx context.Context, q Query) ([]json.RawMessage, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.Path, err)
	}
	defer f.Close()

	items, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", c.Path, err)
	}
	return capItems(items, q.Limit), nil
}

// ReadCSV maps each row onto the actor's JSON shape.
func ReadCSV(r io.Reader) ([]json.RawMessage, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var items []json.RawMessage
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(names ...string) any {
			for _, n := range names {
				if i, ok := cols[n]; ok && i < len(row) {
					if v := strings.TrimSpace(row[i]); v != "" {
						return v
					}
				}
			}
			return nil
		}

		ad := map[string]any{
			"adArchiveID":    get("ad_archive_id", "adArchiveID"),
			"pageName":       get("page_name", "snapshot/page_name"),
			"pageProfileUri": get("snapshot/page_profile_uri"),
			"adCreativeBody": get("snapshot/body/text", "snapshot/body"),
			"start_date":     get("start_date", "startDate"),
			"snapshot": map[string]any{
				"page_like_count": get("snapshot/page_like_count"),
				"cta_text":        get("snapshot/cta_text"),
				"link_url":        get("snapshot/link_url"),
				"display_format":  get("snapshot/display_format"),
			},
			"video_sd_url":            get("snapshot/videos/0/video_sd_url"),
			"video_hd_url":            get("snapshot/videos/0/video_hd_url"),
			"video_preview_image_url": get("snapshot/videos/0/video_preview_image_url"),
			"originalImageUrl":        get("snapshot/images/0/original_image_url", "snapshot/cards/0/original_image_url"),
			"imageUrl":                get("snapshot/images/0/resized_image_url"),
		}
		if p := get("publisher_platform", "publisherPlatform"); p != nil {
			ad["publisherPlatform"] = strings.Split(p.(string), ",")
		}

		b, err := json.Marshal(ad)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, b)
	}
	return items, nil
}
