package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"adspy/config"
	"adspy/types"
)

func outcomes(n int) []types.Outcome {
	out := make([]types.Outcome, n)
	for i := range out {
		out[i] = types.Outcome{
			Record: types.AdRecord{ArchiveID: string(rune('a' + i)), PageName: "Page", Index: i},
			Class:  types.MediaText,
			Result: types.EnrichmentResult{Summary: "s", Status: types.StatusSuccess},
		}
	}
	return out
}

func TestDualWriterWritesHeadersOnce(t *testing.T) {
	mem := NewMemory()
	w := NewDualWriter(mem, zap.NewNop())

	h, err := w.Open(context.Background(), "Run")
	require.NoError(t, err)
	assert.Equal(t, "memory://Run", h.URL)

	_, err = w.Open(context.Background(), "Run")
	require.NoError(t, err)

	raw := mem.Rows("Run", config.RawTab)
	require.Len(t, raw, 1)
	assert.Equal(t, RawHeader, raw[0])
	processed := mem.Rows("Run", config.ProcessedTab)
	require.Len(t, processed, 1)
	assert.Equal(t, ProcessedHeader, processed[0])
	assert.Equal(t, 1, mem.Formats(config.RawTab))
	assert.Equal(t, 1, mem.Formats(config.ProcessedTab))
}

func TestDualWriterSingleAppendPerTabInOrder(t *testing.T) {
	mem := NewMemory()
	w := NewDualWriter(mem, zap.NewNop())
	h, err := w.Open(context.Background(), "Run")
	require.NoError(t, err)
	headerAppends := mem.Appends(config.RawTab)

	require.NoError(t, w.Write(context.Background(), h, outcomes(7)))

	assert.Equal(t, headerAppends+1, mem.Appends(config.RawTab))
	assert.Equal(t, headerAppends+1, mem.Appends(config.ProcessedTab))

	raw := mem.Rows("Run", config.RawTab)[1:]
	processed := mem.Rows("Run", config.ProcessedTab)[1:]
	require.Len(t, raw, 7)
	require.Len(t, processed, 7)
	for i := range raw {
		assert.Equal(t, raw[i][0], processed[i][0], "row %d join key", i)
		assert.Equal(t, string(rune('a'+i)), raw[i][0])
	}
}

func TestDualWriterAppendsAreIndependent(t *testing.T) {
	mem := NewMemory()
	w := NewDualWriter(mem, zap.NewNop())
	h, err := w.Open(context.Background(), "Run")
	require.NoError(t, err)

	quota := errors.New("quota exceeded")
	mem.FailOn(config.RawTab, quota)

	err = w.Write(context.Background(), h, outcomes(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, quota)
	assert.Contains(t, err.Error(), config.RawTab)

	assert.Len(t, mem.Rows("Run", config.ProcessedTab), 4)
	assert.Len(t, mem.Rows("Run", config.RawTab), 1)
}

func TestDualWriterBothFailuresAreJoined(t *testing.T) {
	mem := NewMemory()
	w := NewDualWriter(mem, zap.NewNop())
	h, err := w.Open(context.Background(), "Run")
	require.NoError(t, err)

	rawErr, procErr := errors.New("raw down"), errors.New("processed down")
	mem.FailOn(config.RawTab, rawErr)
	mem.FailOn(config.ProcessedTab, procErr)

	err = w.Write(context.Background(), h, outcomes(2))
	assert.ErrorIs(t, err, rawErr)
	assert.ErrorIs(t, err, procErr)
}

func TestDualWriterOpenFailure(t *testing.T) {
	mem := NewMemory()
	mem.FailOn("create", errors.New("permission denied"))

	_, err := NewDualWriter(mem, nil).Open(context.Background(), "Run")
	assert.Error(t, err)
}

func TestDualWriterEmptyBatch(t *testing.T) {
	mem := NewMemory()
	w := NewDualWriter(mem, nil)
	h, err := w.Open(context.Background(), "Run")
	require.NoError(t, err)
	before := mem.Appends(config.RawTab)

	require.NoError(t, w.Write(context.Background(), h, nil))
	assert.Equal(t, before, mem.Appends(config.RawTab))
}

func TestRowProjections(t *testing.T) {
	o := types.Outcome{
		Record: types.AdRecord{
			ArchiveID:    "42",
			PageName:     "Acme",
			PageLikes:    12000,
			Platforms:    []string{"facebook", "instagram"},
			PublishedAt:  time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
			ResizedImage: "https://img/small.jpg",
			Source:       json.RawMessage(`{"adArchiveID":"42"}`),
		},
		Class:  types.MediaImage,
		Result: types.Skipped("all tiers exhausted"),
	}

	raw := RawRow(o)
	require.Len(t, raw, len(RawHeader))
	assert.Equal(t, "42", raw[0])
	assert.Equal(t, int64(12000), raw[4])
	assert.Equal(t, "2024-05-01 08:30:00", raw[9])
	assert.Equal(t, "facebook, instagram", raw[10])
	assert.Equal(t, "https://img/small.jpg", raw[13])
	assert.Equal(t, `{"adArchiveID":"42"}`, raw[14])

	added := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	processed := ProcessedRow(o, added)
	require.Len(t, processed, len(ProcessedHeader))
	assert.Equal(t, "Image", processed[1])
	assert.Equal(t, "2025-01-02 03:04:05", processed[2])
	assert.Equal(t, "", processed[5])
	assert.Equal(t, "Skipped", processed[9])
}

func TestRawRowEmptyDate(t *testing.T) {
	raw := RawRow(types.Outcome{Record: types.AdRecord{ArchiveID: "1"}})
	assert.Equal(t, "", raw[9])
}

func TestCellTruncation(t *testing.T) {
	assert.Len(t, cell(strings.Repeat("x", maxCellChars+10)), maxCellChars)

	multi := cell("x" + strings.Repeat("é", maxCellChars))
	assert.LessOrEqual(t, len(multi), maxCellChars)
	assert.True(t, utf8.ValidString(multi))
}

func TestA1Quoting(t *testing.T) {
	assert.Equal(t, "'Raw Data'!A1", a1("Raw Data"))
	assert.Equal(t, "'Bob''s'!A1", a1("Bob's"))
	assert.Equal(t, `O\'Brien`, escapeQuery("O'Brien"))
}

func TestGoogleAppendRowsRequest(t *testing.T) {
	var (
		path  string
		query string
		body  sheets.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	g := &Google{sheets: svc, logger: zap.NewNop()}
	err = g.AppendRows(context.Background(), Handle{ID: "sheet-1"}, "Raw Data", [][]any{{"a", "b"}, {"c", "d"}})
	require.NoError(t, err)

	assert.Contains(t, path, "/spreadsheets/sheet-1/values/")
	assert.True(t, strings.HasSuffix(path, ":append"))
	assert.Contains(t, query, "valueInputOption=RAW")
	assert.Contains(t, query, "insertDataOption=INSERT_ROWS")
	require.Len(t, body.Values, 2)
	assert.Equal(t, "c", body.Values[1][0])
}
