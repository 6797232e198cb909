package adlibrary

import (
	"context"
	"encoding/json"
)

// mockAds cover one ad of each media class for dry runs.
var mockAds = []string{
	`{
		"adArchiveID": "mock_video_1",
		"pageID": "1001",
		"pageName": "Mock AI Agency",
		"pageProfileUri": "https://facebook.com/mockpage",
		"adCreativeBody": "Watch how our AI agents book meetings while you sleep.",
		"publisherPlatform": ["facebook", "instagram"],
		"startDate": 1717200000,
		"isActive": true,
		"snapshot": {
			"page_like_count": 15000,
			"cta_text": "Learn more",
			"link_url": "https://example.com/ai-agents",
			"display_format": "VIDEO",
			"videos": [{
				"video_sd_url": "https://example.com/mock/ad_sd.mp4",
				"video_hd_url": "https://example.com/mock/ad_hd.mp4",
				"video_preview_image_url": "https://example.com/mock/ad_preview.jpg"
			}]
		}
	}`,
	`{
		"adArchiveID": "mock_image_1",
		"pageID": "1002",
		"pageName": "Mock Growth Studio",
		"pageProfileUri": "https://facebook.com/mockgrowth",
		"adCreativeBody": "Double your leads in 30 days. Free strategy call.",
		"publisherPlatform": ["facebook"],
		"startDate": "2024-06-01T09:00:00Z",
		"isActive": true,
		"snapshot": {
			"page_like_count": 22000,
			"cta_text": "Book now",
			"link_url": "https://example.com/strategy",
			"display_format": "IMAGE",
			"images": [{
				"original_image_url": "https://example.com/mock/ad.jpg",
				"resized_image_url": "https://example.com/mock/ad_small.jpg"
			}]
		}
	}`,
	`{
		"adArchiveID": "mock_text_1",
		"pageID": "1003",
		"pageName": "Mock AI Agency",
		"pageProfileUri": "https://facebook.com/mockpage",
		"adCreativeBody": "Boost your business with AI automation. Save time and money.",
		"publisherPlatform": ["facebook"],
		"start_date": 1717286400000,
		"isActive": true,
		"snapshot": {"page_like_count": 15000}
	}`,
}

// Mock serves the fixed dry-run dataset.
type Mock struct{}

func (Mock) Fetch(ctx context.Context, q Query) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, len(mockAds))
	for i, ad := range mockAds {
		items[i] = json.RawMessage(ad)
	}
	return capItems(items, q.withDefaults().Limit), nil
}
