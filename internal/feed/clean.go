package feed

import "strings"

const (
	anchorOpen  = "<a "
	descKey     = `"desc":`
	coverKey    = `"cover":`
	titleKey    = `"title":`
	festivalKey = `"festival"`
	yearKey     = `"year":`
)

// Clean repairs a raw feed body so that encoding/json accepts it.
//
// Passes, in order: drop closing anchor tags and line breaks, drop opening
// anchor tags, blank every desc value that precedes a cover field, and turn
// double quotes inside title values into spaces.
func Clean(text string) string {
	text = strings.NewReplacer(`<\/a>`, "", "</a>", "", "\r", "", "\n", "").Replace(text)
	text = stripAnchors(text)
	text = blankDescriptions(text)
	return unquoteTitles(text)
}

// stripAnchors removes every "<a ...>" tag. An unterminated tag ends the pass.
func stripAnchors(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for {
		head := strings.Index(text, anchorOpen)
		if head == -1 {
			break
		}
		end := strings.IndexByte(text[head:], '>')
		if end == -1 {
			break
		}
		b.WriteString(text[:head])
		text = text[head+end+1:]
	}
	b.WriteString(text)
	return b.String()
}

// stringValue locates the string value of key at text[head:] whose closing
// `",` sits right before the next occurrence of next. It returns the value
// bounds, and ok=false when the value is not a plain string or when the span
// would run into another record.
func stringValue(text string, head int, key, next string) (start, stop, end int, ok bool) {
	rel := strings.Index(text[head:], next)
	if rel == -1 {
		return 0, 0, -1, false
	}
	end = head + rel
	start = head + len(key) + 1
	stop = end - 2
	if start > stop || text[start-1] != '"' || text[stop:end] != `",` {
		return 0, 0, end, false
	}
	if strings.Contains(text[start:stop], yearKey) {
		return 0, 0, end, false
	}
	return start, stop, end, true
}

// blankDescriptions empties each desc value. Descriptions hold free HTML that
// breaks JSON and nothing downstream reads them.
func blankDescriptions(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for {
		head := strings.Index(text, descKey)
		if head == -1 {
			break
		}
		start, stop, end, ok := stringValue(text, head, descKey, coverKey)
		if end == -1 {
			break
		}
		if !ok {
			b.WriteString(text[:head+len(descKey)])
			text = text[head+len(descKey):]
			continue
		}
		b.WriteString(text[:start])
		text = text[stop:]
	}
	b.WriteString(text)
	return b.String()
}

// unquoteTitles replaces stray double quotes inside title values with spaces.
func unquoteTitles(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for {
		head := strings.Index(text, titleKey)
		if head == -1 {
			break
		}
		start, stop, end, ok := stringValue(text, head, titleKey, festivalKey)
		if end == -1 {
			break
		}
		if !ok {
			b.WriteString(text[:head+len(titleKey)])
			text = text[head+len(titleKey):]
			continue
		}
		b.WriteString(text[:start])
		b.WriteString(strings.NewReplacer(`\"`, " ", `"`, " ").Replace(text[start:stop]))
		b.WriteString(text[stop:end])
		text = text[end:]
	}
	b.WriteString(text)
	return b.String()
}
