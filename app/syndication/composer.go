package syndication

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pixelpress/pixelpress/app/database"
)

// DefaultExcerptLength is the character budget for %excerpt% substitutions.
const DefaultExcerptLength = 125

var (
	lineEndingRe = regexp.MustCompile(`\r\n?`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	wordSplitRe  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Composer builds the outbound status text for a post from a template with
// substitution tags, falling back through custom message, template, and
// finally the post title.
type Composer struct {
	excerptLength int
	extractor     *ExcerptExtractor
	titleCaser    cases.Caser
}

// NewComposer creates a new status composer
func NewComposer(excerptLength int, extractor *ExcerptExtractor) *Composer {
	if excerptLength <= 0 {
		excerptLength = DefaultExcerptLength
	}

	return &Composer{
		excerptLength: excerptLength,
		extractor:     extractor,
		titleCaser:    cases.Title(language.Und, cases.NoLower),
	}
}

// Run composes the final status text. The custom per-post status wins when
// non-blank, then the site-wide template, then the bare post title. The
// permalink is appended unless it already occurs in the composed text.
func (c *Composer) Run(customStatus, template string, post *database.Post) string {
	source := strings.TrimSpace(customStatus)
	if source == "" {
		source = strings.TrimSpace(template)
	}
	if source == "" {
		source = "%title%"
	}

	var out strings.Builder
	for _, seg := range parseTemplate(source) {
		switch seg.kind {
		case segLiteral:
			out.WriteString(seg.text)
		case segTitle:
			out.WriteString(strings.TrimSpace(stripHTML(post.Title)))
		case segExcerpt:
			out.WriteString(c.excerpt(post))
		case segTags:
			out.WriteString(c.hashtags(post.Tags))
		case segPermalink:
			out.WriteString(post.Permalink)
		}
	}

	status := out.String()
	status = lineEndingRe.ReplaceAllString(status, "\n")
	status = blankRunRe.ReplaceAllString(status, "\n\n")
	status = strings.TrimSpace(stripHTML(status))

	return c.appendPermalink(status, post.Permalink)
}

// excerpt returns the post's excerpt, HTML-stripped, entity-decoded, and
// truncated to the configured budget. When the post has no explicit excerpt,
// readable text is extracted from the content instead.
func (c *Composer) excerpt(post *database.Post) string {
	text := strings.TrimSpace(stripHTML(post.Excerpt))

	if text == "" && c.extractor != nil {
		if extracted, err := c.extractor.Run(post.Content); err == nil {
			text = extracted
		}
	}
	if text == "" {
		return ""
	}

	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) <= c.excerptLength {
		return text
	}

	truncated := strings.TrimRight(string(runes[:c.excerptLength]), " ")

	// The ellipsis is only added when the cut point isn't already punctuation.
	last, _ := lastRune(truncated)
	if !unicode.IsPunct(last) {
		truncated += "…"
	}

	return truncated
}

// hashtags renders taxonomy terms as space-separated #Hashtag tokens.
// Multi-word terms collapse to CamelCase.
func (c *Composer) hashtags(tags []string) string {
	var tokens []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		var hashtag strings.Builder
		hashtag.WriteByte('#')
		for _, word := range wordSplitRe.Split(tag, -1) {
			if word == "" {
				continue
			}
			hashtag.WriteString(c.titleCaser.String(word))
		}

		if hashtag.Len() > 1 {
			tokens = append(tokens, hashtag.String())
		}
	}

	return strings.Join(tokens, " ")
}

// appendPermalink adds the permalink on its own line for multi-line statuses
// and space-separated otherwise, skipping it entirely when it is already
// present anywhere in the text.
func (c *Composer) appendPermalink(status, permalink string) string {
	if permalink == "" || strings.Contains(status, permalink) {
		return status
	}

	if status == "" {
		return permalink
	}

	if strings.Contains(status, "\n") {
		return status + "\n" + permalink
	}

	return status + " " + permalink
}

// stripHTML reduces an HTML fragment to its text content, decoding entities
// along the way.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return html.UnescapeString(fragment)
	}

	return doc.Text()
}

func lastRune(s string) (rune, bool) {
	var last rune
	found := false
	for _, r := range s {
		last = r
		found = true
	}
	return last, found
}
