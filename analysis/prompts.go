package analysis

import (
	"fmt"
	"strings"

	"adspy/common"
	"adspy/types"
)

const maxExcerptChars = 2000

func adText(rec types.AdRecord) string {
	text := rec.Text
	if text == "" {
		text = "(no ad copy)"
	}
	if rec.CTAText != "" {
		text += "\nCall to action: " + rec.CTAText
	}
	return text
}

func buildTextPrompt(rec types.AdRecord, landing string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following Facebook ad copy from %q:\n%q\n\n", rec.PageName, adText(rec))
	if landing != "" {
		landing = common.Truncate(landing, maxExcerptChars)
		fmt.Fprintf(&b, "The ad links to a page that reads:\n%s\n\n", landing)
	}
	b.WriteString("1. Provide a comprehensive summary of the ad's angle and offer.\n")
	b.WriteString("2. Rewrite the ad copy for a similar product but with a fresh perspective.\n\n")
	b.WriteString(`Return as JSON: { "summary": "...", "rewritten_copy": "..." }`)
	return b.String()
}

func buildImagePrompt(rec types.AdRecord, rewrite bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this ad image and the accompanying text: %q\n\n", adText(rec))
	b.WriteString("1. Describe the image in detail.\n")
	b.WriteString("2. Provide a summary of the ad.\n")
	if rewrite {
		b.WriteString("3. Rewrite the ad copy.\n")
		b.WriteString("4. Create a detailed image generation prompt to recreate a similar image.\n\n")
		b.WriteString(`Return as JSON: { "summary": "...", "rewritten_copy": "...", "image_prompt": "..." }`)
	} else {
		b.WriteString("3. Create a detailed image generation prompt to recreate a similar image.\n\n")
		b.WriteString(`Return as JSON: { "summary": "...", "image_prompt": "..." }`)
	}
	return b.String()
}

func buildVideoPrompt(rec types.AdRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this video and the text: %q\n\n", adText(rec))
	b.WriteString("1. Describe the video content, visual style, and audio (implied).\n")
	b.WriteString("2. Provide a summary of the ad.\n")
	b.WriteString("3. Rewrite the ad copy.\n")
	b.WriteString("4. Create a detailed video generation prompt.\n\n")
	b.WriteString(`Return as JSON: { "summary": "...", "rewritten_copy": "...", "video_prompt": "..." }`)
	return b.String()
}
