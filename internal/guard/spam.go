package guard

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minMessageRunes    = 2
	maxRepeatedRun     = 6 // a rune followed by 6 more copies of itself is spam
	shoutingMinRunes   = 11
	phoneShortMsgRunes = 30
	maxPhoneNumbers    = 2
	maxEmoji           = 10
)

var (
	linkPattern   = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"']+`)
	phonePattern  = regexp.MustCompile(`(?:\+234|0)[0-9]{10}`)
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	phrasePattern = regexp.MustCompile(`(?i)(buy.*crypto|click.*here|congratulations.*won|viagra|cialis|\$\$\$)`)

	allowedLinkHosts = []string{"storehouse.ng", "storehouse.app"}
)

// CheckSpam reports whether message trips a spam heuristic, and which one.
func CheckSpam(message string) (SpamReason, bool) {
	if utf8.RuneCountInString(strings.TrimSpace(message)) < minMessageRunes {
		return SpamTooShort, true
	}
	if longestRun(message) > maxRepeatedRun {
		return SpamRepeatedChars, true
	}
	runes := utf8.RuneCountInString(message)
	if runes >= shoutingMinRunes && message == strings.ToUpper(message) && upperPattern.MatchString(message) {
		return SpamShouting, true
	}
	if hasExternalLink(message) {
		return SpamExternalLink, true
	}
	phones := len(phonePattern.FindAllStringIndex(message, -1))
	if (phones > 0 && runes < phoneShortMsgRunes) || phones > maxPhoneNumbers {
		return SpamPhoneSolicitation, true
	}
	if countEmoji(message) > maxEmoji {
		return SpamEmojiFlood, true
	}
	if phrasePattern.MatchString(message) {
		return SpamPhrase, true
	}
	return "", false
}

// longestRun returns the length of the longest run of one repeated rune.
func longestRun(s string) int {
	longest, run := 0, 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func hasExternalLink(message string) bool {
	for _, raw := range linkPattern.FindAllString(message, -1) {
		if !isStorehouseLink(raw) {
			return true
		}
	}
	return false
}

func isStorehouseLink(raw string) bool {
	if !strings.Contains(strings.ToLower(raw), "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, allowed := range allowedLinkHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func countEmoji(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x1F300 && r <= 0x1F9FF {
			n++
		}
	}
	return n
}
