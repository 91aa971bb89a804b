package schedule

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var tagRE = regexp.MustCompile(`<[^>]*>`)

// StripTags returns the text content of an HTML fragment with entities decoded.
// Line breaks and block boundaries become spaces so "7:30<br>9:40" stays two
// words. It never fails: markup the parser rejects falls back to a plain tag strip.
func StripTags(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return markup
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return html.UnescapeString(tagRE.ReplaceAllString(markup, " "))
	}
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, div, li, tr, td").AppendHtml(" ").PrependHtml(" ")
	return doc.Text()
}

// CollapseWhitespace replaces every run of whitespace (including non-breaking
// spaces) with a single space and trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText folds the typographic noise found on hand-edited pages into
// plain ASCII punctuation:
//   - perform unicode NFKC normalization
//   - turn every kind of dash into '-'
//   - turn smart quotes into plain quotes
//   - drop zero-width and other invisible characters
//   - collapse whitespace
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\ufeff', '\u200d', '\u200c':
			return -1
		case '“', '”', '‟':
			return '"'
		case '\u2018', '\u2019', '\u201b':
			return '\''
		}
		if unicode.Is(unicode.Pd, r) {
			return '-'
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsGraphic(r) {
			return -1
		}
		return r
	}, s)
	return CollapseWhitespace(s)
}

var parenGroupRE = regexp.MustCompile(`\(([^)]*)\)`)

// ExtractParenthetical removes each "(...)" group from s, first to last, and
// returns what is left along with the contents of every group. Groups do not
// nest: a group ends at the first closing parenthesis.
func ExtractParenthetical(s string) (outer string, groups []string) {
	for {
		loc := parenGroupRE.FindStringSubmatchIndex(s)
		if loc == nil {
			break
		}
		groups = append(groups, s[loc[2]:loc[3]])
		s = s[:loc[0]] + " " + s[loc[1]:]
	}
	return CollapseWhitespace(s), groups
}
