package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspy/types"
)

const plainReply = `{"summary":"Sells automation","rewritten_copy":"Automate today","image_prompt":"A robot at a desk"}`

func TestParseReplyFencedEqualsUnfenced(t *testing.T) {
	want, ok := ParseReply(plainReply)
	require.True(t, ok)

	for name, reply := range map[string]string{
		"bare fence":    "```\n" + plainReply + "\n```",
		"json fence":    "```json\n" + plainReply + "\n```",
		"prose around":  "Here you go:\n```json\n" + plainReply + "\n```\nLet me know!",
		"inline fence":  "```json " + plainReply + "```",
		"windows lines": "```json\r\n" + plainReply + "\r\n```",
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseReply(reply)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseReplyFieldMapping(t *testing.T) {
	got, ok := ParseReply(plainReply)
	require.True(t, ok)
	assert.Equal(t, "Sells automation", got.Summary)
	assert.Equal(t, "Automate today", got.RewrittenCopy)
	assert.Equal(t, "A robot at a desk", got.ImagePrompt)
	assert.Empty(t, got.VideoPrompt)
	assert.Equal(t, types.StatusSuccess, got.Status)
}

func TestParseReplyBraceFallback(t *testing.T) {
	got, ok := ParseReply(`Sure! {"summary": "Short", "video_prompt": "Slow pan"} Hope this helps.`)
	require.True(t, ok)
	assert.Equal(t, "Short", got.Summary)
	assert.Equal(t, "Slow pan", got.VideoPrompt)
}

func TestParseReplyAliasesAndNonStrings(t *testing.T) {
	got, ok := ParseReply(`{"summary": ["angle", "offer"], "rewritten_ad_copy": "New copy", "image_prompt": {"style": "flat"}}`)
	require.True(t, ok)
	assert.Equal(t, `["angle","offer"]`, got.Summary)
	assert.Equal(t, "New copy", got.RewrittenCopy)
	assert.Equal(t, `{"style":"flat"}`, got.ImagePrompt)
}

func TestParseReplyMissingKeysStayEmpty(t *testing.T) {
	got, ok := ParseReply(`{"summary": null}`)
	require.True(t, ok)
	assert.Empty(t, got.Summary)
	assert.Empty(t, got.RewrittenCopy)
}

func TestParseReplyGarbageIsSkipped(t *testing.T) {
	for _, reply := range []string{
		"",
		"   ",
		"I cannot help with that.",
		"```json\nnot json at all\n```",
		"{unterminated",
		"} backwards {",
		"[1, 2, 3]",
		"```",
	} {
		assert.NotPanics(t, func() {
			got, ok := ParseReply(reply)
			assert.False(t, ok, reply)
			assert.Equal(t, types.StatusSkipped, got.Status)
			assert.Empty(t, got.Summary)
		})
	}
}

func TestParseReplyBackticksInsideValues(t *testing.T) {
	reply := "{\"summary\":\"Dev tool ad\",\"rewritten_copy\":\"Ship faster: ```npm i tool``` and go\"}"
	got, ok := ParseReply(reply)
	require.True(t, ok)
	assert.Equal(t, "Dev tool ad", got.Summary)
	assert.Equal(t, "Ship faster: ```npm i tool``` and go", got.RewrittenCopy)

	got, ok = ParseReply("```json\n" + reply + "\n```")
	require.True(t, ok)
	assert.Equal(t, "Dev tool ad", got.Summary)
}

func TestParseReplyUnrelatedFenceBeforeObject(t *testing.T) {
	got, ok := ParseReply("Here is a note:\n```\nsee below\n```\n{\"summary\":\"S\"}")
	require.True(t, ok)
	assert.Equal(t, "S", got.Summary)

	got, ok = ParseReply("```\nsee below\n```\n```json\n{\"summary\":\"second\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "second", got.Summary)
}
