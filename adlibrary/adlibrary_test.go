package adlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adspy/common"
	"adspy/records"
	"adspy/types"
)

func TestSearchURL(t *testing.T) {
	got := SearchURL(Query{SearchTerm: "ai automation"})
	assert.Equal(t,
		"https://www.facebook.com/ads/library/?active_status=all&ad_type=all&country=GB&q=ai+automation&sort_data[direction]=desc&sort_data[mode]=relevancy_monthly_grouped&media_type=all",
		got)

	active := SearchURL(Query{SearchTerm: "crm & sales", Country: "us", ActiveOnly: true})
	assert.Contains(t, active, "active_status=active")
	assert.Contains(t, active, "country=US")
	assert.Contains(t, active, "q=crm+%26+sales")
}

func TestTargetURLPrefersManual(t *testing.T) {
	assert.Equal(t, "https://custom", TargetURL(Query{SearchTerm: "x", ManualURL: " https://custom "}))
	assert.Equal(t, SearchURL(Query{SearchTerm: "x"}), TargetURL(Query{SearchTerm: "x"}))
}

func fastRetry() common.Retry {
	return common.Retry{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestApifyFetch(t *testing.T) {
	var input actorInput
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))

		items := make([]map[string]any, 5)
		for i := range items {
			items[i] = map[string]any{"adArchiveID": fmt.Sprint(i)}
		}
		_ = json.NewEncoder(w).Encode(items)
	}))
	defer srv.Close()

	a := NewApify("tok", zap.NewNop(), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetry(fastRetry()))
	items, err := a.Fetch(context.Background(), Query{SearchTerm: "ads", Limit: 3})
	require.NoError(t, err)

	assert.Len(t, items, 3)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "/acts/curious_coder~facebook-ads-library-scraper/run-sync-get-dataset-items", path)
	assert.Equal(t, 3, input.LimitPerSource)
	require.Len(t, input.URLs, 1)
	assert.Contains(t, input.URLs[0].URL, "q=ads")
}

func TestApifyManualURLStillCapped(t *testing.T) {
	var input actorInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		_, _ = w.Write([]byte(`[{"a":1},{"a":2},{"a":3}]`))
	}))
	defer srv.Close()

	a := NewApify("tok", nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetry(fastRetry()))
	items, err := a.Fetch(context.Background(), Query{ManualURL: "https://www.facebook.com/ads/library/?id=1", Limit: 2})
	require.NoError(t, err)

	assert.Len(t, items, 2)
	assert.Equal(t, "https://www.facebook.com/ads/library/?id=1", input.URLs[0].URL)
}

func TestApifyRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := NewApify("tok", nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetry(fastRetry()))
	items, err := a.Fetch(context.Background(), Query{SearchTerm: "x"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestApifyAuthFailureIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":{"type":"token-not-valid"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := NewApify("bad", nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetry(fastRetry()))
	_, err := a.Fetch(context.Background(), Query{SearchTerm: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestMockCoversEveryMediaClass(t *testing.T) {
	items, err := Mock{}.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	recs := records.NormalizeAll(items, zap.NewNop())
	require.Len(t, recs, 3)

	var classes []string
	for _, r := range recs {
		classes = append(classes, records.Classify(r).String())
		assert.GreaterOrEqual(t, r.PageLikes, int64(10000))
		assert.False(t, r.PublishedAt.IsZero(), r.ArchiveID)
	}
	assert.Equal(t, []string{"Video", "Image", "Text"}, classes)

	capped, err := Mock{}.Fetch(context.Background(), Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

const csvExport = "ad_archive_id,page_name,snapshot/page_profile_uri,snapshot/body/text,snapshot/page_like_count,snapshot/videos/0/video_sd_url,snapshot/images/0/original_image_url,snapshot/images/0/resized_image_url,start_date\n" +
	"111,Video Page,https://fb/v,Watch this,\"20,000\",https://cdn/v.mp4,,,1717200000\n" +
	"222,Image Page,https://fb/i,Look at this,500,,https://cdn/i.jpg,https://cdn/i_small.jpg,2024-06-01\n" +
	"333,Text Page,https://fb/t,Read this,,,,,\n"

func TestReadCSVMapsColumns(t *testing.T) {
	items, err := ReadCSV(strings.NewReader(csvExport))
	require.NoError(t, err)
	require.Len(t, items, 3)

	recs := records.NormalizeAll(items, zap.NewNop())
	require.Len(t, recs, 3)

	assert.Equal(t, "111", recs[0].ArchiveID)
	assert.Equal(t, "Video Page", recs[0].PageName)
	assert.Equal(t, int64(20000), recs[0].PageLikes)
	assert.Equal(t, "https://cdn/v.mp4", recs[0].VideoSDURL)
	assert.Equal(t, types.MediaVideo, records.Classify(recs[0]))

	assert.Equal(t, "https://cdn/i.jpg", recs[1].ImageURL)
	assert.Equal(t, "https://cdn/i_small.jpg", recs[1].ResizedImage)
	assert.Equal(t, "Look at this", recs[1].Text)
	assert.Equal(t, types.MediaImage, records.Classify(recs[1]))

	assert.Equal(t, int64(0), recs[2].PageLikes)
	assert.Equal(t, types.MediaText, records.Classify(recs[2]))
}

func TestCSVFileFetchAppliesLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ads.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvExport), 0o600))

	items, err := CSVFile{Path: path}.Fetch(context.Background(), Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = CSVFile{Path: filepath.Join(t.TempDir(), "missing.csv")}.Fetch(context.Background(), Query{})
	assert.Error(t, err)
}
