package syndication

import (
	"strings"
	"testing"

	"github.com/pixelpress/pixelpress/app/database"
)

func newTestComposer() *Composer {
	return NewComposer(DefaultExcerptLength, nil)
}

func TestComposer_DefaultTemplate(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Permalink: "https://blog.example/hello-world",
	}

	result := composer.Run("", "%title% %permalink%", post)

	expected := "Hello World https://blog.example/hello-world"
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestComposer_AllTagsSubstituted(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Sunset at the Pier",
		Excerpt:   "Golden light over the harbor.",
		Tags:      []string{"travel", "photography"},
		Permalink: "https://blog.example/sunset-at-the-pier",
	}

	result := composer.Run("", "%title%\n%excerpt%\n%tags%\n%permalink%", post)

	for _, tag := range []string{"%title%", "%excerpt%", "%tags%", "%permalink%"} {
		if strings.Contains(result, tag) {
			t.Errorf("Expected %s substituted, got %q", tag, result)
		}
	}

	for _, want := range []string{"Sunset at the Pier", "Golden light over the harbor.", "#Travel", "#Photography"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in the status, got %q", want, result)
		}
	}

	if strings.Count(result, post.Permalink) != 1 {
		t.Errorf("Expected permalink to appear exactly once, got %q", result)
	}
}

func TestComposer_PermalinkNotDuplicated(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Permalink: "https://blog.example/hello-world",
	}

	result := composer.Run("", "%title% %permalink%", post)

	if strings.Count(result, post.Permalink) != 1 {
		t.Errorf("Expected permalink to appear exactly once, got %q", result)
	}
}

func TestComposer_PermalinkAppendedWhenMissing(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Permalink: "https://blog.example/hello-world",
	}

	result := composer.Run("", "%title%", post)

	expected := "Hello World https://blog.example/hello-world"
	if result != expected {
		t.Errorf("Expected permalink appended with a space, got %q", result)
	}
}

func TestComposer_PermalinkOnOwnLineForMultilineStatus(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Tags:      []string{"travel"},
		Permalink: "https://blog.example/hello-world",
	}

	result := composer.Run("", "%title%\n%tags%", post)

	expected := "Hello World\n#Travel\nhttps://blog.example/hello-world"
	if result != expected {
		t.Errorf("Expected permalink on its own line, got %q", result)
	}
}

func TestComposer_CustomStatusWins(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Permalink: "https://blog.example/hello-world",
	}

	result := composer.Run("Check out %title%!", "%excerpt%", post)

	expected := "Check out Hello World! https://blog.example/hello-world"
	if result != expected {
		t.Errorf("Expected custom status to take precedence, got %q", result)
	}
}

func TestComposer_BlankCustomStatusFallsBack(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("   ", "%title%", post)

	if !strings.HasPrefix(result, "Hello World") {
		t.Errorf("Expected fallback to template, got %q", result)
	}
}

func TestComposer_EmptyTemplateFallsBackToTitle(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello World",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "", post)

	expected := "Hello World https://blog.example/p"
	if result != expected {
		t.Errorf("Expected bare title fallback, got %q", result)
	}
}

func TestComposer_HTMLStrippedAndEntitiesDecoded(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Cats &amp; Dogs",
		Excerpt:   "<p>Some <strong>bold</strong> text</p>",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%title%: %excerpt%", post)

	if strings.Contains(result, "<") || strings.Contains(result, "&amp;") {
		t.Errorf("Expected HTML stripped and entities decoded, got %q", result)
	}
	if !strings.Contains(result, "Cats & Dogs") {
		t.Errorf("Expected decoded title, got %q", result)
	}
	if !strings.Contains(result, "Some bold text") {
		t.Errorf("Expected stripped excerpt, got %q", result)
	}
}

func TestComposer_ExcerptTruncation(t *testing.T) {
	composer := NewComposer(20, nil)

	post := &database.Post{
		Excerpt:   "This sentence is much longer than the twenty character budget",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%excerpt%", post)

	if !strings.Contains(result, "…") {
		t.Errorf("Expected ellipsis on truncated excerpt, got %q", result)
	}

	status := strings.TrimSuffix(result, " "+post.Permalink)
	if len([]rune(status)) > 21 {
		t.Errorf("Expected excerpt cut to budget plus ellipsis, got %q (%d runes)", status, len([]rune(status)))
	}
}

func TestComposer_ExcerptNoEllipsisAfterPunctuation(t *testing.T) {
	composer := NewComposer(11, nil)

	post := &database.Post{
		Excerpt:   "Hello, you. More text beyond the budget",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%excerpt%", post)

	if strings.Contains(result, ".…") {
		t.Errorf("Expected no ellipsis after punctuation, got %q", result)
	}
}

func TestComposer_ShortExcerptNotTruncated(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Excerpt:   "Short and sweet",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%excerpt%", post)

	if strings.Contains(result, "…") {
		t.Errorf("Expected no ellipsis for short excerpt, got %q", result)
	}
	if !strings.Contains(result, "Short and sweet") {
		t.Errorf("Expected full excerpt, got %q", result)
	}
}

func TestComposer_ExcerptWhitespaceCollapsed(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Excerpt:   "Spread   across\n\nlines\tand tabs",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%excerpt%", post)

	if !strings.Contains(result, "Spread across lines and tabs") {
		t.Errorf("Expected whitespace collapsed, got %q", result)
	}
}

func TestComposer_Hashtags(t *testing.T) {
	composer := newTestComposer()

	tests := []struct {
		name     string
		tags     []string
		expected string
	}{
		{"single word", []string{"travel"}, "#Travel"},
		{"multi word", []string{"street photography"}, "#StreetPhotography"},
		{"hyphenated", []string{"black-and-white"}, "#BlackAndWhite"},
		{"multiple tags", []string{"travel", "japan"}, "#Travel #Japan"},
		{"uppercase preserved", []string{"NYC"}, "#NYC"},
		{"blank tag skipped", []string{"", "travel"}, "#Travel"},
		{"no tags", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := composer.hashtags(tt.tags)
			if result != tt.expected {
				t.Errorf("hashtags(%v) = %q, expected %q", tt.tags, result, tt.expected)
			}
		})
	}
}

func TestComposer_BlankLinesCollapsed(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%title%\n\n\n\n%permalink%", post)

	expected := "Hello\n\nhttps://blog.example/p"
	if result != expected {
		t.Errorf("Expected blank run collapsed, got %q", result)
	}
}

func TestComposer_CRLFNormalized(t *testing.T) {
	composer := newTestComposer()

	post := &database.Post{
		Title:     "Hello",
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("Hello\r\nWorld", "", post)

	if strings.Contains(result, "\r") {
		t.Errorf("Expected carriage returns removed, got %q", result)
	}
}

func TestComposer_ExcerptExtractedFromContent(t *testing.T) {
	composer := NewComposer(DefaultExcerptLength, NewExcerptExtractor())

	post := &database.Post{
		Content: `<html><body><article>
			<p>The first paragraph of the post body carries the text the excerpt should fall back to when no explicit excerpt exists.</p>
			<p>A second paragraph pads the article out so the readability pass has enough content to work with here.</p>
		</article></body></html>`,
		Permalink: "https://blog.example/p",
	}

	result := composer.Run("", "%excerpt%", post)

	if !strings.Contains(result, "first paragraph") {
		t.Errorf("Expected excerpt extracted from content, got %q", result)
	}
}
