package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

const shopifyFixture = `<!DOCTYPE html>
<html>
<head>
	<title>Trail Running Shoe | Example Shop</title>
	<meta property="og:title" content="Trail Running Shoe">
	<meta property="og:image" content="//cdn.shopify.com/s/files/shoe-front.jpg">
	<meta property="og:image" content="https://cdn.shopify.com/s/files/shoe-side.jpg">
	<meta property="product:price:amount" content="129.95">
	<meta property="product:price:currency" content="EUR">
	<meta name="description" content="Short meta description.">
	<script src="https://cdn.shopify.com/s/assets/app.js"></script>
</head>
<body>
	<h1>Something Else Entirely</h1>
	<link itemprop="availability" href="https://schema.org/InStock">
	<div class="product-description"><p>Lightweight shoe for <strong>rough terrain</strong>.</p></div>
	<div class="product-gallery">
		<img src="https://cdn.shopify.com/s/files/shoe-front.jpg">
		<img src="https://cdn.shopify.com/s/files/shoe-back.jpg">
	</div>
</body>
</html>`

const microdataFixture = `<!DOCTYPE html>
<html>
<head><meta name="generator" content="WooCommerce 8.4"></head>
<body>
	<span itemprop="name">Ceramic Mug</span>
	<span itemprop="price">24,90</span>
	<meta itemprop="priceCurrency" content="SEK">
	<meta itemprop="availability" content="OutOfStock">
	<div id="description">Hand thrown stoneware mug.</div>
</body>
</html>`

func TestParseProductPageShopify(t *testing.T) {
	page, err := ParseProductPage(shopifyFixture, "https://shop.example.com/p/shoe")
	require.NoError(t, err)

	// og:title wins over the unrelated h1
	assert.Equal(t, "Trail Running Shoe", page.Name)
	assert.Equal(t, 129.95, page.Price)
	assert.Equal(t, "EUR", page.Currency)
	assert.Equal(t, models.AvailabilityInStock, page.Availability)
	assert.Equal(t, "shopify", page.Platform)
	assert.Contains(t, page.Description, "rough terrain")

	// Protocol-relative og:image fixed up, duplicates collapsed
	assert.Equal(t, []string{
		"https://cdn.shopify.com/s/files/shoe-front.jpg",
		"https://cdn.shopify.com/s/files/shoe-side.jpg",
		"https://cdn.shopify.com/s/files/shoe-back.jpg",
	}, page.Images)
}

func TestParseProductPageMicrodata(t *testing.T) {
	page, err := ParseProductPage(microdataFixture, "https://shop.example.se/mug")
	require.NoError(t, err)

	assert.Equal(t, "Ceramic Mug", page.Name)
	assert.Equal(t, 24.90, page.Price)
	assert.Equal(t, "SEK", page.Currency)
	assert.Equal(t, models.AvailabilityOutOfStock, page.Availability)
	assert.Equal(t, "woocommerce", page.Platform)
	assert.Equal(t, "Hand thrown stoneware mug.", page.Description)
}

func TestParseProductPageMissingName(t *testing.T) {
	_, err := ParseProductPage(`<html><body><div class="price">9.99</div></body></html>`, "https://shop.example.com/p/x")
	require.Error(t, err)

	var extractionErr *interfaces.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, extractionErr.Cause, "missing selector")
}

func TestParseProductPageUnknownAvailability(t *testing.T) {
	page, err := ParseProductPage(`<html><body><h1>Gift Card</h1></body></html>`, "https://shop.example.com/p/gift")
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityUnknown, page.Availability)
}

func TestParseProductPageDisabledCartButton(t *testing.T) {
	html := `<html><body><h1>Sold Out Poster</h1><button name="add" disabled>Sold out</button></body></html>`
	page, err := ParseProductPage(html, "https://shop.example.com/p/poster")
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityOutOfStock, page.Availability)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"$1,299.00", 1299.00, true},
		{"1.299,00", 1299.00, true},
		{"24,90", 24.90, true},
		{"129.95", 129.95, true},
		{"1299", 1299, true},
		{"EUR 59,00", 59.00, true},
		{"  £ 10 ", 10, true},
		{"free", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := parsePrice(tc.raw)
			assert.Equal(t, tc.valid, ok)
			if tc.valid {
				assert.InDelta(t, tc.want, got, 0.001)
			}
		})
	}
}
