package validate

import (
	"fmt"
	"strings"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
)

const fuzzyThreshold = 0.6

type matcher struct {
	products   []catalog.Product
	known      map[int64]bool // product prices and amounts quoted in store text
	customer   map[int64]bool
	maxMult    int64
	policies   *catalog.Policies
	storeText  string
	storeNames string // normalized business name and store text, space-padded
	byNormName map[string]int
}

func newMatcher(products []catalog.Product, message string, profile catalog.Profile, o options) *matcher {
	m := &matcher{
		products:   products,
		known:      make(map[int64]bool),
		customer:   customerAmounts(message),
		maxMult:    o.maxMultiple,
		policies:   o.policies,
		byNormName: make(map[string]int, len(products)),
	}
	for i, p := range products {
		if p.Price > 0 {
			m.known[p.Price] = true
		}
		m.byNormName[normalize(p.Name)] = i
	}

	var text strings.Builder
	text.WriteString(profile.BusinessName)
	text.WriteByte('\n')
	text.WriteString(profile.AboutUs)
	text.WriteByte('\n')
	if o.policies != nil {
		text.WriteString(o.policies.Delivery.Areas)
		text.WriteByte('\n')
		text.WriteString(o.policies.Delivery.Time)
		text.WriteByte('\n')
		text.WriteString(o.policies.Returns)
		text.WriteByte('\n')
		for _, pm := range o.policies.PaymentMethods {
			text.WriteString(pm.Provider)
			text.WriteByte('\n')
		}
	}
	for _, p := range products {
		text.WriteString(p.Description)
		text.WriteByte('\n')
		for k, v := range p.Specifications {
			fmt.Fprintf(&text, "%s %v\n", k, v)
		}
	}
	m.storeText = strings.ToLower(text.String())
	m.storeNames = " " + normalize(text.String()) + " "
	for _, pc := range extractPrices(text.String()) {
		m.known[pc.Minor] = true
	}
	return m
}

// check runs every rule in order and reports the first failure.
func (m *matcher) check(c Claims) (string, bool) {
	for _, pc := range c.Prices {
		if pc.Candidate != "" {
			if p, ok := m.resolve(pc.Candidate); ok {
				if !m.isMultipleOf(pc.Minor, p.Price) {
					return fmt.Sprintf("%s: %s quoted at %s, catalog price %s",
						ReasonPriceMismatch, p.Name, catalog.FormatNaira(pc.Minor), catalog.FormatNaira(p.Price)), false
				}
				continue
			}
		}
		if !m.groundedPrice(pc.Minor) {
			return fmt.Sprintf("%s: %s", ReasonUnknownPrice, pc.Raw), false
		}
	}

	for _, pc := range c.Prices {
		if pc.Candidate == "" || !looksLikeProduct(pc.Candidate) {
			continue
		}
		if _, ok := m.resolve(pc.Candidate); !ok {
			return fmt.Sprintf("%s: %s", ReasonUnknownProduct, pc.Candidate), false
		}
	}

	for _, cand := range c.Candidates {
		if !looksLikeProduct(cand) || m.storeMentions(cand) {
			continue
		}
		if _, ok := m.resolve(cand); !ok {
			return fmt.Sprintf("%s: %s", ReasonUnknownProduct, cand), false
		}
	}

	if m.policies != nil {
		for _, phrase := range c.Phrases {
			if !m.supported(phrase) {
				return fmt.Sprintf("%s: %s", ReasonUnsupportedClaim, phrase), false
			}
		}
	}
	return "", true
}

// groundedPrice accepts a catalog price, an amount the shopper or the store text used, an
// order total (n × price), or the sum or difference of two catalog prices (combos, upgrades).
// It is only consulted for prices not attached to a catalog product.
func (m *matcher) groundedPrice(v int64) bool {
	if m.known[v] || m.customer[v] {
		return true
	}
	for _, p := range m.products {
		if m.isMultipleOf(v, p.Price) {
			return true
		}
	}
	for i, a := range m.products {
		for _, b := range m.products[i+1:] {
			if a.Price+b.Price == v || a.Price-b.Price == v || b.Price-a.Price == v {
				return true
			}
		}
	}
	return false
}

func (m *matcher) isMultipleOf(v, price int64) bool {
	if price <= 0 || v%price != 0 {
		return false
	}
	n := v / price
	return n >= 1 && n <= m.maxMult
}

// storeMentions reports whether name appears in the store's own text, such as the business
// name or a payment provider.
func (m *matcher) storeMentions(name string) bool {
	n := normalize(name)
	return n != "" && strings.Contains(m.storeNames, " "+n+" ")
}

// resolve finds the catalog product a candidate name refers to: exact, substring either way,
// then the best token overlap of at least fuzzyThreshold.
func (m *matcher) resolve(candidate string) (catalog.Product, bool) {
	cand := normalize(candidate)
	if cand == "" {
		return catalog.Product{}, false
	}
	if i, ok := m.byNormName[cand]; ok {
		return m.products[i], true
	}

	candTokens := tokens(candidate)
	best, bestScore := -1, 0.0
	for i, p := range m.products {
		name := normalize(p.Name)
		if name == "" {
			continue
		}
		if strings.Contains(" "+name+" ", " "+cand+" ") || strings.Contains(" "+cand+" ", " "+name+" ") {
			return p, true
		}
		if s := overlap(candTokens, tokens(p.Name)); s >= fuzzyThreshold && s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return catalog.Product{}, false
	}
	return m.products[best], true
}

// overlap is the share of tokens the two names have in common, relative to the longer name.
func overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	shared := 0
	for _, t := range a {
		if set[t] {
			shared++
			delete(set, t)
		}
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return float64(shared) / float64(longest)
}

// looksLikeProduct rejects single capitalised words at a sentence start and charge labels
// such as "Delivery Fee".
func looksLikeProduct(candidate string) bool {
	words := tokens(candidate)
	allCharges := true
	for _, w := range words {
		if !chargeWords[w] && !channelWords[w] {
			allCharges = false
			break
		}
	}
	if allCharges {
		return false
	}
	if len(words) >= 2 {
		return true
	}
	// One word counts only if it reads like a model code ("A14", "iPhone").
	w := strings.Fields(candidate)[0]
	return strings.ContainsAny(w, "0123456789") || (len(w) > 1 && hasUpperRune(w[1:]))
}

func (m *matcher) supported(phrase string) bool {
	for _, r := range claimRules {
		if r.name != phrase {
			continue
		}
		for _, s := range r.support {
			if strings.Contains(m.storeText, s) {
				return true
			}
		}
		return false
	}
	return true
}

// referenced returns the catalog products the response talked about, for the safe reply.
func (m *matcher) referenced(c Claims) []catalog.Product {
	seen := make(map[string]bool)
	var out []catalog.Product
	add := func(p catalog.Product) {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	for _, name := range c.Products {
		if i, ok := m.byNormName[normalize(name)]; ok {
			add(m.products[i])
		}
	}
	for _, pc := range c.Prices {
		if pc.Candidate == "" {
			continue
		}
		if p, ok := m.resolve(pc.Candidate); ok {
			add(p)
		}
	}
	for _, cand := range c.Candidates {
		if p, ok := m.resolve(cand); ok {
			add(p)
		}
	}
	return out
}
