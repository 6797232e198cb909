package analysis

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"adspy/types"
)

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\\r?\\n?(.*?)```")

var rewrittenKeys = []string{"rewritten_copy", "rewritten_ad_copy", "rewritten"}

// ParseReply decodes a model reply into an EnrichmentResult. The whole
// reply is tried first, then each fenced code block, then the outermost
// brace span. ok is false, with a Skipped result, when nothing decodes.
func ParseReply(reply string) (types.EnrichmentResult, bool) {
	body := strings.TrimSpace(reply)
	if body == "" {
		return types.Skipped("empty model reply"), false
	}

	fields, ok := decodeReply(body)
	if !ok {
		return types.Skipped("unparseable model reply"), false
	}

	res := types.EnrichmentResult{
		Summary:     field(fields, "summary"),
		ImagePrompt: field(fields, "image_prompt"),
		VideoPrompt: field(fields, "video_prompt"),
		Status:      types.StatusSuccess,
	}
	for _, k := range rewrittenKeys {
		if v := field(fields, k); v != "" {
			res.RewrittenCopy = v
			break
		}
	}
	return res, true
}

func decodeReply(body string) (map[string]json.RawMessage, bool) {
	if fields, ok := decodeObject(body); ok {
		return fields, true
	}
	for _, m := range fencePattern.FindAllStringSubmatch(body, -1) {
		inner := strings.TrimSpace(m[1])
		if fields, ok := decodeObject(inner); ok {
			return fields, true
		}
		if fields, ok := decodeBraceSpan(inner); ok {
			return fields, true
		}
	}
	return decodeBraceSpan(body)
}

func decodeBraceSpan(s string) (map[string]json.RawMessage, bool) {
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeObject(s[start : end+1])
}

func decodeObject(s string) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// field renders a value as text. Strings are returned as-is; any other
// JSON value is returned compacted.
func field(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
