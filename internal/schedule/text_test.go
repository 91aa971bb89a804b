package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_StripTags(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain text passes through", "7:30 nightly", "7:30 nightly"},
		{"tags removed", "<b>Roman</b> <i>Holiday</i>", "Roman Holiday"},
		{"entities decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"line breaks separate words", "7:30<br>9:40", "7:30 9:40"},
		{"unclosed markup is tolerated", "<p>7:30 <b>9:40", "7:30 9:40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollapseWhitespace(StripTags(tt.in)))
		})
	}
}

func TestUnit_CollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\t\n b  c  "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestUnit_NormalizeText_FoldsTypography(t *testing.T) {
	assert.Equal(t, "July 18-19", NormalizeText("July 18–19"))
	assert.Equal(t, `"Gaslight" isn't`, NormalizeText("“Gaslight” isn’t"))
	assert.Equal(t, "Roman Holiday", NormalizeText("Roman\u200b Holiday\ufeff"))
	assert.Equal(t, "7:30", NormalizeText(" 7:30 "))
}

func TestUnit_ExtractParenthetical(t *testing.T) {
	outer, groups := ExtractParenthetical("7:30 (plus 3:55 Sunday) and (closed Monday)")
	assert.Equal(t, "7:30 and", outer)
	require.Equal(t, []string{"plus 3:55 Sunday", "closed Monday"}, groups)

	outer, groups = ExtractParenthetical("no groups here")
	assert.Equal(t, "no groups here", outer)
	assert.Empty(t, groups)

	// groups do not nest: the first ")" closes the group
	outer, groups = ExtractParenthetical("a (b (c) d) e")
	assert.Equal(t, "a d) e", outer)
	assert.Equal(t, []string{"b (c"}, groups)
}
