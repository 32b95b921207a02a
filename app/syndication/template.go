package syndication

import (
	"strings"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segTitle
	segExcerpt
	segTags
	segPermalink
)

type segment struct {
	kind segmentKind
	text string // literal text, only set for segLiteral
}

var tagKinds = map[string]segmentKind{
	"%title%":     segTitle,
	"%excerpt%":   segExcerpt,
	"%tags%":      segTags,
	"%permalink%": segPermalink,
}

// parseTemplate splits a status template into literal runs and substitution
// tags. Unknown %...% sequences stay literal.
func parseTemplate(template string) []segment {
	var segments []segment
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{kind: segLiteral, text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(template); {
		if template[i] != '%' {
			literal.WriteByte(template[i])
			i++
			continue
		}

		matched := false
		for tag, kind := range tagKinds {
			if strings.HasPrefix(template[i:], tag) {
				flush()
				segments = append(segments, segment{kind: kind})
				i += len(tag)
				matched = true
				break
			}
		}
		if !matched {
			literal.WriteByte(template[i])
			i++
		}
	}
	flush()

	return segments
}
