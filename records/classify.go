package records

import "adspy/types"

// Classify assigns an ad to exactly one media class.
// Any video URL wins over images, and images win over text.
func Classify(r types.AdRecord) types.MediaClass {
	if r.VideoSDURL != "" || r.VideoHDURL != "" {
		return types.MediaVideo
	}
	if r.PrimaryImageURL() != "" {
		return types.MediaImage
	}
	return types.MediaText
}
