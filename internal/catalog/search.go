package catalog

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var priceCeiling = regexp.MustCompile(`(?i)(?:under|below|less than|<)\s*(?:₦|naira|ngn)?\s*([\d,]+)\s*(k?)`)

// SearchProducts returns products matching query, in-stock first then cheapest first.
// A clause such as "under ₦50k" caps the price; the remaining words must appear in the
// product's name, description, category or specifications. A query that is only a price
// clause matches every product under the cap.
func SearchProducts(products []Product, query string) []Product {
	maxPrice := int64(math.MaxInt64)
	rest := query
	if m := priceCeiling.FindStringSubmatchIndex(query); m != nil {
		value, err := strconv.ParseInt(strings.ReplaceAll(query[m[2]:m[3]], ",", ""), 10, 64)
		if err == nil {
			if m[5] > m[4] {
				value *= 1000
			}
			maxPrice = value * 100
		}
		rest = query[:m[0]] + " " + query[m[1]:]
	}

	rest = strings.ToLower(strings.TrimSpace(rest))
	var terms []string
	for _, t := range strings.FieldsFunc(rest, isSeparator) {
		if len([]rune(t)) >= 3 {
			terms = append(terms, t)
		}
	}

	var out []Product
	for _, p := range products {
		if p.Price > maxPrice {
			continue
		}
		if rest != "" && !matchesQuery(p, rest, terms) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Quantity > 0, out[j].Quantity > 0
		if ai != aj {
			return ai
		}
		return out[i].Price < out[j].Price
	})
	return out
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func matchesQuery(p Product, query string, terms []string) bool {
	haystack := searchText(p)
	if strings.Contains(haystack, query) {
		return true
	}
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func searchText(p Product) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('\n')
	b.WriteString(p.Description)
	b.WriteByte('\n')
	b.WriteString(p.Category)
	for k, v := range p.Specifications {
		b.WriteByte('\n')
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(v))
	}
	return strings.ToLower(b.String())
}
