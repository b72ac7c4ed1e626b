package responder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
	"github.com/storehouse-ng/storefront-chat/internal/language"
)

const (
	maxInStockListed    = 30
	maxOutOfStockListed = 10
	maxRelevantListed   = 5
	maxAboutRunes       = 500
)

var responseGuidelines = []string{
	"**Be Conversational**: Chat naturally in %s, don't sound robotic",
	"**Understand Intent**: If the customer says \"for my mom\", recommend accordingly",
	"**Compare Options**: When showing multiple products, explain the differences",
	"**Upsell Smartly**: Suggest combos or upgrades if relevant, without being pushy",
	"**Be Specific**: Use exact prices and stock numbers from the list above",
	"**NEVER Invent**: Only mention products, prices, specs and policies from the data above",
	"**WhatsApp CTA**: Always end product recommendations with the WhatsApp number for ordering",
	"**Handle Questions**: For delivery, returns or payment, use the policy data above",
	"**Be Brief But Complete**: 3-5 sentences max, but include all key details",
	"**Out of Stock**: If a product is unavailable, suggest similar alternatives that are in stock",
}

// BuildPrompt renders the system prompt for one generative call: the language instruction,
// the store profile and policies, the catalog, FAQ and the response rules.
// Products relevant to message are listed separately so long catalogs still surface them.
func BuildPrompt(sc *catalog.StoreContext, lang language.Tag, instruction, message string) string {
	p := sc.Profile
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert shopping assistant for %s.\n\n", p.BusinessName)

	section(&b, "LANGUAGE")
	b.WriteString(instruction)
	b.WriteString("\n\n")

	section(&b, "YOUR ROLE")
	b.WriteString("Help customers find the right products, answer questions accurately, and drive sales. " +
		"Be conversational, helpful and persuasive, but always honest.\n\n")

	section(&b, "STORE PROFILE")
	fmt.Fprintf(&b, "Business: %s\n", p.BusinessName)
	if about, cut := catalog.TruncateSmartly(p.AboutUs, maxAboutRunes); about != "" {
		if cut {
			about += "…"
		}
		fmt.Fprintf(&b, "About: %s\n", about)
	}
	line(&b, "Address", p.Address)
	line(&b, "WhatsApp", p.WhatsApp)
	line(&b, "Hours", p.BusinessHours)
	b.WriteByte('\n')

	pol := sc.Policies
	section(&b, "DELIVERY POLICY")
	if pol.Delivery.Areas != "" {
		fmt.Fprintf(&b, "Areas: %s\n", pol.Delivery.Areas)
	} else {
		b.WriteString("Contact us for delivery info\n")
	}
	line(&b, "Delivery Time", pol.Delivery.Time)
	b.WriteByte('\n')

	section(&b, "RETURN POLICY")
	if pol.Returns != "" {
		b.WriteString(pol.Returns)
	} else {
		b.WriteString("Contact us for return policy")
	}
	b.WriteString("\n\n")

	section(&b, "PAYMENT METHODS")
	if len(pol.PaymentMethods) == 0 {
		b.WriteString("Contact us for payment options\n")
	}
	for _, pm := range pol.PaymentMethods {
		fmt.Fprintf(&b, "%s: %s (%s)\n", pm.Provider, pm.AccountName, pm.AccountNumber)
	}
	b.WriteByte('\n')

	inStock := sc.InStock()
	section(&b, fmt.Sprintf("AVAILABLE PRODUCTS (%d in stock)", len(inStock)))
	for i, prod := range inStock {
		if i == maxInStockListed {
			break
		}
		b.WriteString(productLine(prod))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if out := sc.OutOfStock(); len(out) > 0 {
		section(&b, "OUT OF STOCK")
		for i, prod := range out {
			if i == maxOutOfStockListed {
				break
			}
			fmt.Fprintf(&b, "• %s\n", prod.Name)
		}
		b.WriteByte('\n')
	}

	if relevant := relevantProducts(sc.Products, message); len(relevant) > 0 {
		section(&b, "MOST RELEVANT TO THIS QUESTION")
		for _, prod := range relevant {
			b.WriteString(productLine(prod))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(sc.FAQ) > 0 {
		section(&b, "FREQUENTLY ASKED QUESTIONS")
		for _, f := range sc.FAQ {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", f.Question, f.Answer)
		}
		b.WriteByte('\n')
	}

	section(&b, "RESPONSE GUIDELINES")
	for i, g := range responseGuidelines {
		if i == 0 {
			g = fmt.Sprintf(g, lang)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}

	contact := p.WhatsApp
	if contact == "" {
		contact = "us"
	}
	fmt.Fprintf(&b, "\nNow answer the customer's question using only the store data above. "+
		"To order, customers WhatsApp %s.", contact)
	return b.String()
}

// productLine formats "• Name: ₦X (N in stock) - description | Specs: k: v, ...".
func productLine(p catalog.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "• %s: %s", p.Name, catalog.FormatNaira(p.Price))
	if p.Quantity > 0 {
		fmt.Fprintf(&b, " (%d in stock)", p.Quantity)
	} else {
		b.WriteString(" (out of stock)")
	}
	if p.Description != "" {
		b.WriteString(" - ")
		b.WriteString(p.Description)
	}
	if len(p.Specifications) > 0 {
		keys := make([]string, 0, len(p.Specifications))
		for k := range p.Specifications {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		specs := make([]string, len(keys))
		for i, k := range keys {
			specs[i] = fmt.Sprintf("%s: %v", k, p.Specifications[k])
		}
		b.WriteString(" | Specs: ")
		b.WriteString(strings.Join(specs, ", "))
	}
	return b.String()
}

// relevantProducts narrows the catalog to the message. A search that matches everything
// (or nothing) adds no information and is dropped.
func relevantProducts(products []catalog.Product, message string) []catalog.Product {
	if strings.TrimSpace(message) == "" || len(products) == 0 {
		return nil
	}
	found := catalog.SearchProducts(products, message)
	if len(found) == len(products) {
		return nil
	}
	if len(found) > maxRelevantListed {
		found = found[:maxRelevantListed]
	}
	return found
}

func section(b *strings.Builder, title string) {
	b.WriteString("**")
	b.WriteString(title)
	b.WriteString(":**\n")
}

func line(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}
