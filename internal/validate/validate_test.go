package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storehouse-ng/storefront-chat/internal/catalog"
)

var (
	testProducts = []catalog.Product{
		{ID: "1", Name: "Leather Bag", Price: 150000, Quantity: 3},
		{ID: "2", Name: "Infinix Smart 7", Price: 5500000, Quantity: 2},
		{ID: "3", Name: "Tecno Spark 10", Price: 6500000, Quantity: 0, Description: "1 year warranty"},
	}
	testProfile = catalog.Profile{BusinessName: "Acme", WhatsApp: "+2348012345678"}
)

func TestValidate_PriceGrounding(t *testing.T) {
	ok := Validate("The Leather Bag costs ₦1,500. WhatsApp +2348012345678 to order!", "how much is the bag?", testProducts, testProfile)
	assert.True(t, ok.Valid, ok.Reason)
	require.Len(t, ok.Claims.Prices, 1)
	assert.Equal(t, int64(150000), ok.Claims.Prices[0].Minor)
	assert.Equal(t, "Leather Bag", ok.Claims.Prices[0].Candidate)
	assert.Equal(t, []string{"Leather Bag"}, ok.Claims.Products)

	bad := Validate("The Leather Bag costs ₦2,000.", "how much is the bag?", testProducts, testProfile)
	assert.False(t, bad.Valid)
	assert.Equal(t, ReasonPriceMismatch, bad.Category())
	assert.Contains(t, bad.Reason, "Leather Bag")
	assert.Contains(t, bad.FixedResponse, "• Leather Bag: ₦1,500 (3 in stock)")
	assert.Contains(t, bad.FixedResponse, "+2348012345678")
	assert.NotContains(t, bad.FixedResponse, "₦2,000", "the hallucinated text is never reused")
}

func TestValidate_UnknownPrice(t *testing.T) {
	res := Validate("We have lovely items from ₦7,250 upwards.", "what do you sell?", testProducts, testProfile)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUnknownPrice, res.Category())
	assert.Contains(t, res.FixedResponse, "WhatsApp: +2348012345678")
}

func TestValidate_GroundedDerivedPrices(t *testing.T) {
	tests := map[string]struct {
		response string
		message  string
	}{
		"order total":       {"Two Leather Bags come to ₦3,000.", "price for 2 bags"},
		"upgrade gap":       {"The Tecno Spark 10 (₦65,000) has a better camera for just ₦10k more.", "cheapest phone?"},
		"combo":             {"Get both for ₦56,500 total.", "bag and phone together"},
		"customer budget":   {"Sadly nothing is under ₦5,000.", "anything under 5k?"},
		"no prices at all":  {"We deliver across Lagos. WhatsApp +2348012345678.", "do you deliver?"},
		"decimal and naira": {"Infinix Smart 7 is 55,000 naira, about ₦55,000.00 exactly.", "infinix price"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res := Validate(tt.response, tt.message, testProducts, testProfile)
			assert.True(t, res.Valid, res.Reason)
		})
	}
}

func TestValidate_UnknownProduct(t *testing.T) {
	res := Validate("🏆 Samsung Galaxy A14 - ₦1,500", "phone for my dad", testProducts, testProfile)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUnknownProduct, res.Category())
	assert.Contains(t, res.Reason, "Samsung Galaxy A14")
}

func TestValidate_ShopperOfferDoesNotOverrideCatalogPrice(t *testing.T) {
	res := Validate("Yes! The Leather Bag is ₦1,000. WhatsApp +2348012345678 to order.",
		"can I get the Leather Bag for 1000 naira?", testProducts, testProfile)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonPriceMismatch, res.Category())
	assert.Contains(t, res.FixedResponse, "• Leather Bag: ₦1,500")

	res = Validate("The Leather Bag is ₦2.", "I want 2 bags", testProducts, testProfile)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonPriceMismatch, res.Category())
}

func TestCustomerAmounts(t *testing.T) {
	tests := []struct {
		message string
		want    []int64
	}{
		{"I want 2 bags", nil},
		{"anything under 5k?", []int64{500000}},
		{"my budget is 20,000", []int64{2000000}},
		{"can I pay 1000 naira", []int64{100000}},
		{"₦50 is all I have", []int64{5000}},
		{"3 of the 45 ones", nil},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := customerAmounts(tt.message)
			assert.Len(t, got, len(tt.want))
			for _, v := range tt.want {
				assert.True(t, got[v], "missing %d", v)
			}
		})
	}
}

func TestValidate_UnknownOfferedProduct(t *testing.T) {
	res := Validate("We also have the Apple iPhone 15 Pro Max in stock, WhatsApp us to order!",
		"do you have iphones?", testProducts, testProfile)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUnknownProduct, res.Category())
	assert.Contains(t, res.Reason, "Apple iPhone 15 Pro Max")
	assert.Equal(t, []string{"Apple iPhone 15 Pro Max"}, res.Claims.Candidates)

	res = Validate("The Samsung Galaxy A14 is available now.", "samsung?", testProducts, testProfile)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUnknownProduct, res.Category())
}

func TestValidate_KnownOfferedProducts(t *testing.T) {
	for _, response := range []string{
		"We have the Infinix Smart 7 in black. WhatsApp us to order!",
		"Yes, the Leather Bag is available.",
		"In stock: Infinix Smart 7 and more.",
		"We sell Phones and bags.",
		"WhatsApp is available all day.",
		"We also have Acme gift cards, ask us!",
		"Yes it is in stock.",
	} {
		t.Run(response, func(t *testing.T) {
			res := Validate(response, "what do you have?", testProducts, testProfile)
			assert.True(t, res.Valid, res.Reason)
		})
	}
}

func TestOfferedNames(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"We also have the Apple iPhone 15 Pro Max in stock, WhatsApp us", []string{"Apple iPhone 15 Pro Max"}},
		{"we stock **Samsung Galaxy A14** too", []string{"Samsung Galaxy A14"}},
		{"Available: Tecno Spark 10. Order now", []string{"Tecno Spark 10"}},
		{"The Leather Bag is now available", []string{"Leather Bag"}},
		{"Sorry, it is not available", nil},
		{"We have lovely items", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, offeredNames(tt.text))
		})
	}
}

func TestValidate_FuzzyProductNames(t *testing.T) {
	res := Validate("The Infinix Smart 7 Phone is ₦55,000.", "infinix?", testProducts, testProfile)
	assert.True(t, res.Valid, res.Reason)

	res = Validate("Our Bag is ₦1,500.", "bag?", testProducts, testProfile)
	assert.True(t, res.Valid, res.Reason)
}

func TestValidate_ChargeLabelsAreNotProducts(t *testing.T) {
	res := Validate("Delivery Fee: ₦1,500 within Lagos.", "delivery cost?", testProducts, testProfile)
	assert.True(t, res.Valid, res.Reason)
}

func TestValidate_EmptyResponse(t *testing.T) {
	res := Validate("   ", "hi", testProducts, catalog.Profile{})
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonEmptyResponse, res.Reason)
	assert.Contains(t, res.FixedResponse, "please contact the store directly")
}

func TestValidate_Claims(t *testing.T) {
	policies := catalog.Policies{Delivery: catalog.Delivery{Areas: "Lagos"}, Returns: "Refund within 7 days"}

	res := Validate("Enjoy free delivery on the Leather Bag at ₦1,500!", "bag", testProducts, testProfile, WithPolicies(policies))
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUnsupportedClaim+": free_delivery", res.Reason)
	assert.Contains(t, res.FixedResponse, "Leather Bag")

	res = Validate("The Tecno Spark 10 comes with a warranty.", "warranty?", testProducts, testProfile, WithPolicies(policies))
	assert.True(t, res.Valid, "warranty is in the product description: %s", res.Reason)

	res = Validate("Full refund if you are not happy.", "returns?", testProducts, testProfile, WithPolicies(policies))
	assert.True(t, res.Valid, res.Reason)

	res = Validate("Enjoy free delivery!", "delivery", testProducts, testProfile)
	assert.True(t, res.Valid, "claims are only checked with policies")
	assert.Equal(t, []string{"free_delivery"}, res.Claims.Phrases)
}

func TestValidate_PoliciesGroundPrices(t *testing.T) {
	policies := catalog.Policies{Delivery: catalog.Delivery{Areas: "Lagos mainland ₦2,500, island ₦3,500"}}
	res := Validate("Delivery to the island is ₦3,500.", "delivery to lekki?", testProducts, testProfile, WithPolicies(policies))
	assert.True(t, res.Valid, res.Reason)
}

func TestValidate_MaxMultiple(t *testing.T) {
	res := Validate("Three Leather Bags come to ₦4,500.", "3 bags", testProducts, testProfile, WithMaxMultiple(3))
	assert.True(t, res.Valid, res.Reason)

	res = Validate("Three Leather Bags come to ₦4,500.", "3 bags", testProducts, testProfile, WithMaxMultiple(2))
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonUnknownPrice, res.Category())
}

func TestExtractPrices(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"₦1,500", 150000},
		{"₦ 1500", 150000},
		{"N1,500", 150000},
		{"NGN 1500", 150000},
		{"ngn1500", 150000},
		{"1,500 naira", 150000},
		{"₦1.5k", 150000},
		{"₦2k", 200000},
		{"₦2K", 200000},
		{"₦1,500.50", 150050},
		{"costs ₦15,000!", 1500000},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := extractPrices(tt.text)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Minor)
		})
	}
}

func TestExtractPrices_Ignores(t *testing.T) {
	for _, text := range []string{
		"WhatsApp +2348012345678",
		"N95 masks",
		"account 0123456789",
		"iPhone 13",
	} {
		assert.Empty(t, extractPrices(text), text)
	}
}

func TestExtractPrices_NoDoubleCount(t *testing.T) {
	got := extractPrices("₦1,500 naira and ₦2,000")
	require.Len(t, got, 2)
	assert.Equal(t, int64(150000), got[0].Minor)
	assert.Equal(t, int64(200000), got[1].Minor)
}

func TestCandidateBefore(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"The Leather Bag costs ₦1,500", "Leather Bag"},
		{"🏆 Samsung Galaxy A14 - ₦98,000", "Samsung Galaxy A14"},
		{"is the Infinix Smart 7 at ₦55,000", "Infinix Smart 7"},
		{"**Leather Bag**: ₦1,500", "Leather Bag"},
		{"a better camera for just ₦10k", ""},
		{"Hello there. Price is ₦1,500", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			prices := extractPrices(tt.text)
			require.Len(t, prices, 1)
			assert.Equal(t, tt.want, candidateBefore(tt.text, prices[0].start))
		})
	}
}

func TestToMinor(t *testing.T) {
	v, ok := toMinor("1,250,000", false)
	assert.True(t, ok)
	assert.Equal(t, int64(125000000), v)

	_, ok = toMinor("0", false)
	assert.False(t, ok)
	_, ok = toMinor("99999999999999", false)
	assert.False(t, ok)
}

func TestOverlap(t *testing.T) {
	assert.InDelta(t, 0.75, overlap([]string{"samsung", "galaxy", "a14"}, []string{"samsung", "galaxy", "a14", "128gb"}), 1e-9)
	assert.InDelta(t, 1.0/3, overlap([]string{"infinix", "hot", "30"}, []string{"infinix", "smart", "7"}), 1e-9)
	assert.Zero(t, overlap(nil, []string{"x"}))
}
