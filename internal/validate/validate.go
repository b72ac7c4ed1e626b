// Package validate checks a generated answer against the store it claims to describe.
//
// Validation is two passes. Extract finds prices, product mentions, candidate product names
// and promotional claims in the text; the match pass then compares each against the catalog.
// A failed check never edits the generated text: the caller gets a safe replacement built from
// real catalog data. False negatives are accepted; false positives cost a good answer, so
// ambiguous cases pass.
package validate

import (
	"fmt"
	"strings"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
)

// Failure categories reported in Result.Reason.
const (
	ReasonEmptyResponse    = "empty_response"
	ReasonUnknownPrice     = "unknown_price"
	ReasonPriceMismatch    = "price_mismatch"
	ReasonUnknownProduct   = "unknown_product"
	ReasonUnsupportedClaim = "unsupported_claim"
)

// Result is the outcome of Validate.
type Result struct {
	Valid bool `json:"valid"`
	// Reason is "<category>: <detail>" for the first problem found.
	Reason        string `json:"reason,omitempty"`
	FixedResponse string `json:"fixed_response,omitempty"`
	Claims        Claims `json:"claims"`
}

// Category returns the failure category without its detail.
func (r Result) Category() string {
	cat, _, _ := strings.Cut(r.Reason, ":")
	return cat
}

type options struct {
	policies    *catalog.Policies
	maxMultiple int64
}

// Option tunes Validate.
type Option func(*options)

// WithPolicies enables claim checking: promotional phrases in the response must be backed by
// the store's policies, profile or product text.
func WithPolicies(p catalog.Policies) Option {
	return func(o *options) { o.policies = &p }
}

// WithMaxMultiple sets the largest quantity for which n×price counts as a grounded total.
func WithMaxMultiple(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxMultiple = int64(n)
		}
	}
}

// Validate checks response, generated for message, against the store's products and profile.
func Validate(response, message string, products []catalog.Product, profile catalog.Profile, opts ...Option) Result {
	o := options{maxMultiple: 10}
	for _, fn := range opts {
		fn(&o)
	}

	if strings.TrimSpace(response) == "" {
		return Result{
			Reason:        ReasonEmptyResponse,
			FixedResponse: fixedResponse(nil, profile),
		}
	}

	claims := Extract(response, products)
	m := newMatcher(products, message, profile, o)

	if reason, ok := m.check(claims); !ok {
		return Result{
			Reason:        reason,
			FixedResponse: fixedResponse(m.referenced(claims), profile),
			Claims:        claims,
		}
	}
	return Result{Valid: true, Claims: claims}
}

// fixedResponse lists the real prices of the products the answer talked about, or asks the
// shopper to confirm on WhatsApp when there is nothing concrete to show.
func fixedResponse(products []catalog.Product, profile catalog.Profile) string {
	contact := "please contact the store directly"
	if profile.WhatsApp != "" {
		contact = "please confirm with us on WhatsApp: " + profile.WhatsApp
	}

	if len(products) == 0 {
		return "I want to make sure I give you accurate information. For prices and availability, " + contact + " 📱"
	}

	var b strings.Builder
	b.WriteString("Here are the current details from our catalog:\n")
	for _, p := range products {
		stock := "out of stock"
		if p.Quantity > 0 {
			stock = fmt.Sprintf("%d in stock", p.Quantity)
		}
		fmt.Fprintf(&b, "• %s: %s (%s)\n", p.Name, catalog.FormatNaira(p.Price), stock)
	}
	b.WriteString("\nTo order or ask anything else, ")
	b.WriteString(contact)
	b.WriteString(" 📱")
	return b.String()
}
