package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	faqSplit = regexp.MustCompile(`(?i)(?:Q:|Question:)`)
	faqPair  = regexp.MustCompile(`(?is)^\s*(.+?)\s*(?:A:|Answer:)\s*(.+)$`)
)

// ExtractFAQ pulls "Q: … A: …" (or "Question: … Answer: …") pairs out of free text.
func ExtractFAQ(aboutUs string) []FAQEntry {
	if strings.TrimSpace(aboutUs) == "" {
		return nil
	}
	segments := faqSplit.Split(aboutUs, -1)
	if len(segments) < 2 {
		return nil
	}

	var faq []FAQEntry
	for _, seg := range segments[1:] {
		m := faqPair.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		q, a := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if q == "" || a == "" {
			continue
		}
		faq = append(faq, FAQEntry{Question: q, Answer: a})
	}
	return faq
}

// TruncateSmartly shortens text to at most max runes, preferring to cut after a sentence
// (when the break is past 60% of max) or at a paragraph break (past 50%).
// The second result reports whether anything was cut.
func TruncateSmartly(text string, max int) (string, bool) {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text, false
	}

	head := runes[:max]
	breakAt := max
	if i := lastIndexRunes(head, []rune(". ")); float64(i) > float64(max)*0.6 {
		breakAt = i + 1
	} else if i := lastIndexRunes(head, []rune("\n\n")); float64(i) > float64(max)*0.5 {
		breakAt = i + 2
	}
	return strings.TrimSpace(string(runes[:breakAt])), true
}

func lastIndexRunes(s, sub []rune) int {
outer:
	for i := len(s) - len(sub); i >= 0; i-- {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// FormatNaira renders a minor-unit amount as whole naira with thousands separators, e.g. ₦1,500.
func FormatNaira(minor int64) string {
	major := minor / 100
	sign := ""
	if major < 0 {
		sign, major = "-", -major
	}
	return sign + "₦" + groupThousands(strconv.FormatInt(major, 10))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
