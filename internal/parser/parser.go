package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxNoteLength bounds the stored text of an ingested reply
const MaxNoteLength = 8000

var (
	refTagPattern = regexp.MustCompile(`(?i)\[#INV:(\d+)\]`)

	stylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	brPattern     = regexp.MustCompile(`(?i)<br\s*/?>`)
	pClosePattern = regexp.MustCompile(`(?i)</p>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

// ExtractInvoiceID pulls the correlated invoice id out of a subject line
// tagged with [#INV:<digits>]. The second return is false when the subject
// carries no recognizable tag; that is a skip, not an error.
func ExtractInvoiceID(subject string) (uint, bool) {
	m := refTagPattern.FindStringSubmatch(subject)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// WithRefTag appends the correlation tag for invoiceID to a subject line,
// unless the subject already carries it. Replies keep the tag in their
// subject, which is what lets the poller correlate them back.
func WithRefTag(subject, invoiceID string) string {
	if invoiceID == "" {
		return subject
	}
	tag := "[#INV:" + invoiceID + "]"
	if strings.Contains(subject, tag) {
		return subject
	}
	return strings.TrimSpace(subject + " " + tag)
}

// StripHTML converts an HTML body to plain text: style and script blocks are
// removed, line breaks and paragraph ends become newlines, remaining tags are
// dropped and non-breaking spaces normalized.
func StripHTML(html string) string {
	text := stylePattern.ReplaceAllString(html, "")
	text = scriptPattern.ReplaceAllString(text, "")
	text = brPattern.ReplaceAllString(text, "\n")
	text = pClosePattern.ReplaceAllString(text, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, " ", " ")
	return strings.TrimSpace(text)
}

// NormalizeBody converts a message body to bounded plain text. Bodies with an
// HTML content type are stripped to text; everything else is kept verbatim.
func NormalizeBody(content, contentType string) string {
	text := content
	if strings.EqualFold(strings.TrimSpace(contentType), "html") {
		text = StripHTML(content)
	}
	return Truncate(text, MaxNoteLength)
}

// Truncate bounds s to at most max characters, cutting on a rune boundary
// so multi-byte text never becomes invalid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
