package config

import "time"

// Worker pool limits
const (
	// DefaultWorkers is the number of records enriched in parallel
	DefaultWorkers = 5

	// MaxWorkers is the hard ceiling on parallel records
	MaxWorkers = 15
)

// Run defaults
const (
	DefaultMinLikes  = 10000
	DefaultLimit     = 20
	DefaultCountry   = "GB"
	DefaultSheetName = "Meta Ads Spy Results"
	DefaultQuality   = "medium"
)

// Spreadsheet tab names
const (
	RawTab       = "Raw Data"
	ProcessedTab = "Processed Data"
)

// Inference defaults
const (
	OpenRouterBaseURL    = "https://openrouter.ai/api/v1"
	DefaultPrimaryModel  = "openai/gpt-4o"
	DefaultTextModel     = "openai/gpt-4o-mini"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultCohereModel   = "command-r-plus"
	DefaultInferenceWait = 90 * time.Second
	DefaultMaxRetries    = 3
	RetryBaseDelay       = 2 * time.Second
)

// Media handling
const (
	// DefaultDownloadWait bounds a single image or video download
	DefaultDownloadWait = 60 * time.Second

	// DefaultTranscodeWait bounds a single ffmpeg run
	DefaultTranscodeWait = 2 * time.Minute

	// MaxVideoBytes caps the encoded video payload sent to a model (20 MiB)
	MaxVideoBytes = 20 << 20

	// MaxImageBytes caps a downloaded image (10 MiB)
	MaxImageBytes = 10 << 20

	// ReducedVideoHeight is the transcode target for the medium preset
	ReducedVideoHeight = 480

	// VideoCodec and VideoPreset are used when a container must be rewritten
	VideoCodec  = "libx264"
	AudioCodec  = "aac"
	VideoPreset = "fast"
)

// Apify ad library actor
const (
	ApifyBaseURL     = "https://api.apify.com/v2"
	AdLibraryActorID = "curious_coder~facebook-ads-library-scraper"
	AdLibraryBaseURL = "https://www.facebook.com/ads/library/"
	ApifyRunTimeout  = 5 * time.Minute
)
