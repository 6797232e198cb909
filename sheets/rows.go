package sheets

import (
	"strings"
	"time"

	"adspy/common"
	"adspy/types"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	// Google Sheets rejects cells longer than this.
	maxCellChars = 50000
)

var RawHeader = []any{
	"Ad Archive ID", "Page ID", "Page Name", "Page URL", "Page Likes",
	"Ad Text", "CTA Text", "Link URL", "Display Format", "Publish Date",
	"Platforms", "Video SD URL", "Video HD URL", "Image URL", "Source JSON",
}

var ProcessedHeader = []any{
	"Ad Archive ID", "Type", "Date Added", "Page Name", "Page URL",
	"Summary", "Rewritten Ad Copy", "Image Prompt", "Video Prompt", "Status", "Model",
}

// RawRow projects the scraped record. Enrichment never affects it.
func RawRow(o types.Outcome) []any {
	r := o.Record
	published := ""
	if !r.PublishedAt.IsZero() {
		published = r.PublishedAt.UTC().Format(timestampLayout)
	}
	return []any{
		r.ArchiveID,
		r.PageID,
		r.PageName,
		r.PageURL,
		r.PageLikes,
		cell(r.Text),
		r.CTAText,
		r.LinkURL,
		r.DisplayFormat,
		published,
		strings.Join(r.Platforms, ", "),
		r.VideoSDURL,
		r.VideoHDURL,
		r.PrimaryImageURL(),
		cell(string(r.Source)),
	}
}

// ProcessedRow projects the enrichment of one record.
func ProcessedRow(o types.Outcome, added time.Time) []any {
	res := o.Result
	model := res.Model
	if res.Cached && model != "" {
		model += " (cached)"
	}
	return []any{
		o.Record.ArchiveID,
		o.Class.String(),
		added.Format(timestampLayout),
		o.Record.PageName,
		o.Record.PageURL,
		cell(res.Summary),
		cell(res.RewrittenCopy),
		cell(res.ImagePrompt),
		cell(res.VideoPrompt),
		string(res.Status),
		model,
	}
}

func cell(s string) string {
	return common.Truncate(s, maxCellChars)
}
