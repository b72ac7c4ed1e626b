package validate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
)

// PriceClaim is a currency amount found in text.
type PriceClaim struct {
	Raw   string `json:"raw"`
	Minor int64  `json:"minor"`
	// Candidate is the capitalised phrase right before the price, if any.
	Candidate string `json:"candidate,omitempty"`

	start, end int
}

// Claims is everything the extraction pass found in a response.
type Claims struct {
	Prices   []PriceClaim `json:"prices,omitempty"`
	Products []string     `json:"products,omitempty"`
	// Candidates are product-like names the response offers without a price ("we have the X").
	Candidates []string `json:"candidates,omitempty"`
	Phrases    []string `json:"phrases,omitempty"`
}

// Each pattern captures the amount in group 1 and an optional thousands suffix in group 2.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:₦|\b(?i:ngn))\s?(\d[\d,]*(?:\.\d+)?)\s?([kK])?\b`),
	regexp.MustCompile(`\bN((?:\d{1,3}(?:,\d{3})+|\d{3,})(?:\.\d+)?)\s?([kK])?\b`),
	regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)\s?(k)?\s*naira\b`),
}

// bareAmount matches plain numbers such as "50k" or "20,000"; used only on the customer's message.
var bareAmount = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s?([kK])?\b`)

// offerIntro ends where a response starts naming something it offers: "we also have the ...",
// "in stock: ...".
var offerIntro = regexp.MustCompile(`(?i)\b(?:we\s+(?:also\s+)?(?:have|stock|sell|carry)|(?:also\s+)?(?:in\s+stock|available)\s*:)\s+(?:(?:the|an?|our|some)\s+)?`)

// offerOutro starts right after a name the response says is on sale: "... is available".
var offerOutro = regexp.MustCompile(`(?i)\s+(?:is|are)\s+(?:now\s+|also\s+)?(?:available|in\s+stock)\b`)

type claimRule struct {
	name    string
	pattern *regexp.Regexp
	support []string
}

var claimRules = []claimRule{
	{"free_delivery", regexp.MustCompile(`(?i)\bfree\s+(?:delivery|shipping)\b`), []string{"free delivery", "free shipping"}},
	{"discount", regexp.MustCompile(`(?i)\bdiscount(?:s|ed)?\b|\b\d{1,2}\s?%\s*off\b`), []string{"discount", "% off", "promo", "sale"}},
	{"money_back", regexp.MustCompile(`(?i)\bmoney[- ]back\b|\bfull refund\b`), []string{"money back", "money-back", "refund"}},
	{"warranty", regexp.MustCompile(`(?i)\bwarrant(?:y|ies)\b|\bguarantee[sd]?\b`), []string{"warranty", "guarantee"}},
	{"cash_on_delivery", regexp.MustCompile(`(?i)\b(?:cash|pay|payment)\s+on\s+delivery\b`), []string{"cash on delivery", "pay on delivery", "payment on delivery"}},
}

// Words that join a name to its price ("the Bag is ₦5,000", "Bag - ₦5,000").
var connectors = map[string]bool{
	"is": true, "at": true, "for": true, "only": true, "just": true, "costs": true, "cost": true,
	"price": true, "priced": true, "of": true, "from": true, "now": true, "goes": true, "sells": true,
}

// Leading words that are never part of a product name.
var leadingStopwords = map[string]bool{
	"the": true, "our": true, "a": true, "an": true, "this": true, "that": true, "your": true,
	"get": true, "buy": true, "try": true, "yes": true, "and": true, "or": true, "but": true, "also": true,
}

// Capitalised terms that name charges rather than products.
var chargeWords = map[string]bool{
	"delivery": true, "fee": true, "fees": true, "shipping": true, "total": true, "subtotal": true,
	"price": true, "prices": true, "discount": true, "payment": true, "transfer": true, "amount": true,
	"balance": true, "cost": true, "charge": true, "budget": true, "only": true, "naira": true,
	"from": true, "starting": true, "just": true, "now": true, "each": true, "deposit": true,
}

// Contact channels the store is reached on; never product names.
var channelWords = map[string]bool{
	"whatsapp": true, "instagram": true, "facebook": true, "telegram": true, "email": true,
	"phone": true, "call": true, "dm": true,
}

// Extract runs the first pass over response: prices, known product mentions and claim phrases.
func Extract(response string, products []catalog.Product) Claims {
	var c Claims
	c.Prices = extractPrices(response)
	for i := range c.Prices {
		c.Prices[i].Candidate = candidateBefore(response, c.Prices[i].start)
	}
	c.Products = mentionedProducts(response, products)
	c.Candidates = offeredNames(response)
	for _, r := range claimRules {
		if r.pattern.MatchString(response) {
			c.Phrases = append(c.Phrases, r.name)
		}
	}
	return c
}

func extractPrices(text string) []PriceClaim {
	var found []PriceClaim
	for _, re := range pricePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			k := m[4] >= 0 && m[5] > m[4]
			minor, ok := toMinor(text[m[2]:m[3]], k)
			if !ok {
				continue
			}
			found = append(found, PriceClaim{
				Raw:   strings.TrimSpace(text[m[0]:m[1]]),
				Minor: minor,
				start: m[0],
				end:   m[1],
			})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	out := found[:0]
	lastEnd := -1
	for _, p := range found {
		if p.start < lastEnd {
			continue
		}
		out = append(out, p)
		lastEnd = p.end
	}
	return out
}

func customerAmounts(message string) map[int64]bool {
	out := make(map[int64]bool)
	for _, p := range extractPrices(message) {
		out[p.Minor] = true
	}
	for _, m := range bareAmount.FindAllStringSubmatch(message, -1) {
		k := m[2] != ""
		// "2 bags" is a quantity; only "5k" or three digits and up read as money.
		if !k && len(wholeDigits(m[1])) < 3 {
			continue
		}
		if minor, ok := toMinor(m[1], k); ok {
			out[minor] = true
		}
	}
	return out
}

func wholeDigits(amount string) string {
	whole, _, _ := strings.Cut(amount, ".")
	return strings.ReplaceAll(whole, ",", "")
}

// toMinor converts "1,500.50" (optionally in thousands) to kobo without floating point.
func toMinor(amount string, thousands bool) (int64, bool) {
	amount = strings.ReplaceAll(amount, ",", "")
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" || len(whole)+len(frac) > 13 {
		return 0, false
	}

	digits := whole + frac
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	scale := int64(1)
	for range frac {
		scale *= 10
	}
	mult := int64(100)
	if thousands {
		mult *= 1000
	}
	minor := n * mult / scale
	if minor <= 0 {
		return 0, false
	}
	return minor, true
}

// candidateBefore returns the capitalised phrase that ends just before offset, on the same line.
func candidateBefore(text string, offset int) string {
	before := text[:offset]
	if i := strings.LastIndexAny(before, "\n.!?"); i >= 0 {
		before = before[i+1:]
	}

	words := strings.FieldsFunc(before, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":-–—(*=|→,", r)
	})
	for len(words) > 0 && connectors[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}

	var name []string
	for i := len(words) - 1; i >= 0 && len(name) < 6; i-- {
		w := strings.Trim(words[i], `"'“”‘’`)
		if !nameWord(w) {
			break
		}
		name = append([]string{w}, name...)
	}
	// Names don't start with articles or bare quantities ("2 Leather Bags").
	for len(name) > 0 && (leadingStopwords[strings.ToLower(name[0])] || isNumber(name[0])) {
		name = name[1:]
	}
	if !hasUpper(name) {
		return ""
	}
	return strings.Join(name, " ")
}

// offeredNames collects the names that follow offerIntro or precede offerOutro.
func offeredNames(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, m := range offerIntro.FindAllStringIndex(text, -1) {
		add(candidateAfter(text, m[1]))
	}
	for _, m := range offerOutro.FindAllStringIndex(text, -1) {
		add(candidateBefore(text, m[0]))
	}
	return out
}

// candidateAfter returns the capitalised phrase that starts at offset, up to the end of the clause.
func candidateAfter(text string, offset int) string {
	rest := text[offset:]
	if i := strings.IndexAny(rest, "\n.!?,;:("); i >= 0 {
		rest = rest[:i]
	}

	var name []string
	for _, w := range strings.Fields(rest) {
		w = strings.Trim(w, `"'“”‘’*`)
		if !nameWord(w) || len(name) == 6 {
			break
		}
		name = append(name, w)
	}
	for len(name) > 0 && (leadingStopwords[strings.ToLower(name[0])] || isNumber(name[0])) {
		name = name[1:]
	}
	if !hasUpper(name) {
		return ""
	}
	return strings.Join(name, " ")
}

// nameWord accepts capitalised or mixed-case words and model numbers ("Smart 7", "A14").
func nameWord(w string) bool {
	if w == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(w)
	if unicode.IsDigit(r) {
		return true
	}
	return unicode.IsLetter(r) && hasUpperRune(w)
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w != ""
}

func hasUpper(words []string) bool {
	for _, w := range words {
		if hasUpperRune(w) {
			return true
		}
	}
	return false
}

func hasUpperRune(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func mentionedProducts(text string, products []catalog.Product) []string {
	hay := " " + normalize(text) + " "
	var out []string
	for _, p := range products {
		n := normalize(p.Name)
		if n != "" && strings.Contains(hay, " "+n+" ") {
			out = append(out, p.Name)
		}
	}
	return out
}

// normalize lower-cases s and reduces it to single-spaced letters and digits.
func normalize(s string) string {
	return strings.Join(tokens(s), " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
