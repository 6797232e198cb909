package types

// Status describes how an enrichment was produced
type Status string

const (
	StatusSuccess  Status = "Success"
	StatusDegraded Status = "Degraded"
	StatusSkipped  Status = "Skipped"
)

// EnrichmentResult holds the model generated fields for one ad.
// Fields the model did not return stay empty.
type EnrichmentResult struct {
	Summary       string   `json:"summary"`
	RewrittenCopy string   `json:"rewritten_copy,omitempty"`
	ImagePrompt   string   `json:"image_prompt,omitempty"`
	VideoPrompt   string   `json:"video_prompt,omitempty"`
	Status        Status   `json:"status"`
	Tier          string   `json:"tier,omitempty"`
	Model         string   `json:"model,omitempty"`
	Notes         []string `json:"notes,omitempty"`
	Cached        bool     `json:"cached,omitempty"`
}

// Skipped builds an empty result carrying the reason it was skipped.
func Skipped(reason string) EnrichmentResult {
	r := EnrichmentResult{Status: StatusSkipped}
	if reason != "" {
		r.Notes = append(r.Notes, reason)
	}
	return r
}

// Outcome pairs a record with its enrichment. One per filtered record.
type Outcome struct {
	Record AdRecord         `json:"record"`
	Class  MediaClass       `json:"type"`
	Result EnrichmentResult `json:"result"`
}

// RunRequest describes a single pipeline run. It is accepted from the CLI,
// the HTTP API and the Kafka consumer.
type RunRequest struct {
	SearchTerm   string `json:"search_term"`
	Country      string `json:"country,omitempty"`
	ActiveOnly   bool   `json:"active_only,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	ManualURL    string `json:"manual_url,omitempty"`
	MinLikes     *int64 `json:"min_likes,omitempty"`
	SheetName    string `json:"sheet_name,omitempty"`
	Quality      string `json:"quality,omitempty"`
	Workers      int    `json:"workers,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
	FromCSV      string `json:"from_csv,omitempty"`
	LandingPages bool   `json:"landing_pages,omitempty"`
	// RunID names the run. Producers that retry a request reuse it so the
	// archived source batch is kept from the first attempt.
	RunID string `json:"run_id,omitempty"`
}

// RunReport summarizes a completed run.
type RunReport struct {
	RunID     string         `json:"run_id"`
	Scraped   int            `json:"scraped"`
	Filtered  int            `json:"filtered"`
	Counts    map[Status]int `json:"counts"`
	ByType    map[string]int `json:"by_type"`
	SheetURL  string         `json:"sheet_url,omitempty"`
	WriteErr  string         `json:"write_error,omitempty"`
	Archived  bool           `json:"archived,omitempty"`
	Outcomes  []Outcome      `json:"outcomes,omitempty"`
	StartedAt string         `json:"started_at"`
	Duration  string         `json:"duration"`
}
