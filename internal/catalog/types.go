// Package catalog loads the read-only store context (profile, policies, products, FAQ) that
// grounds storefront chat answers.
package catalog

// Profile describes the business behind a storefront.
type Profile struct {
	BusinessName  string `json:"business_name" yaml:"business_name"`
	AboutUs       string `json:"about_us,omitempty" yaml:"about_us"`
	Address       string `json:"address,omitempty" yaml:"address"`
	WhatsApp      string `json:"whatsapp_number,omitempty" yaml:"whatsapp_number"`
	BusinessHours string `json:"business_hours,omitempty" yaml:"business_hours"`
}

// Delivery holds the delivery policy.
type Delivery struct {
	Areas string `json:"areas,omitempty" yaml:"areas"`
	Time  string `json:"time,omitempty" yaml:"time"`
}

// PaymentMethod is one way a customer can pay.
type PaymentMethod struct {
	Provider      string `json:"provider" yaml:"provider" bson:"provider"`
	AccountName   string `json:"account_name" yaml:"account_name" bson:"account_name"`
	AccountNumber string `json:"account_number" yaml:"account_number" bson:"account_number"`
}

// Policies holds the store's delivery, returns and payment terms.
type Policies struct {
	Delivery       Delivery        `json:"delivery" yaml:"delivery"`
	Returns        string          `json:"returns,omitempty" yaml:"returns"`
	PaymentMethods []PaymentMethod `json:"payment_methods" yaml:"payment_methods"`
}

// Product is a publicly visible product. Price is in minor currency units (kobo).
type Product struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Price          int64          `json:"price" yaml:"price"`
	Quantity       int            `json:"quantity" yaml:"quantity"`
	Description    string         `json:"description,omitempty" yaml:"description"`
	Category       string         `json:"category,omitempty" yaml:"category"`
	Specifications map[string]any `json:"specifications,omitempty" yaml:"specifications"`
}

// FAQEntry is a question/answer pair taken from the about-us text.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// StoreContext is a per-request snapshot of everything the assistant may say about a store.
type StoreContext struct {
	Slug     string     `json:"slug"`
	Profile  Profile    `json:"profile"`
	Policies Policies   `json:"policies"`
	Products []Product  `json:"products"`
	FAQ      []FAQEntry `json:"faq"`
}

// InStock returns products with a positive quantity, in catalog order.
func (c *StoreContext) InStock() []Product {
	var out []Product
	for _, p := range c.Products {
		if p.Quantity > 0 {
			out = append(out, p)
		}
	}
	return out
}

// OutOfStock returns products with no stock, in catalog order.
func (c *StoreContext) OutOfStock() []Product {
	var out []Product
	for _, p := range c.Products {
		if p.Quantity <= 0 {
			out = append(out, p)
		}
	}
	return out
}
