package scraper

import (
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

// Selector sets tried in order. Merchant pages vary wildly; Open Graph and
// schema.org microdata cover the big platforms, the class-based selectors
// catch the long tail.
var (
	nameSelectors = []string{
		`meta[property="og:title"]`,
		`[itemprop="name"]`,
		"h1",
		"title",
	}
	priceSelectors = []string{
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
		`[itemprop="price"]`,
		".product-price",
		".price",
	}
	currencySelectors = []string{
		`meta[property="product:price:currency"]`,
		`meta[property="og:price:currency"]`,
		`meta[itemprop="priceCurrency"]`,
		`[itemprop="priceCurrency"]`,
	}
	descriptionSelectors = []string{
		`[itemprop="description"]`,
		".product-description",
		"#description",
	}
)

var priceCleanRe = regexp.MustCompile(`[^\d.,]`)

// ParseProductPage extracts the structured product record from rendered
// HTML. A page where not even a product name can be found is a parse
// failure — the selectors didn't match.
func ParseProductPage(html, pageURL string) (*models.ExtractedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, interfaces.NewExtractionError(pageURL, "parse failure", err)
	}

	page := &models.ExtractedPage{
		Name:         extractFirst(doc, nameSelectors),
		Currency:     extractFirst(doc, currencySelectors),
		Availability: extractAvailability(doc),
		Images:       extractImages(doc),
		Platform:     detectPlatform(doc, html),
	}

	if page.Name == "" {
		return nil, interfaces.NewExtractionError(pageURL, "missing selector: product name not found", nil)
	}

	if raw := extractFirst(doc, priceSelectors); raw != "" {
		if price, ok := parsePrice(raw); ok {
			page.Price = price
		}
	}

	page.Description = extractDescription(doc, pageURL)

	return page, nil
}

// extractFirst returns the first non-empty match across the selector list.
func extractFirst(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if content, ok := node.Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractAvailability(doc *goquery.Document) models.Availability {
	// schema.org microdata first
	for _, sel := range []string{`link[itemprop="availability"]`, `meta[itemprop="availability"]`, `[itemprop="availability"]`} {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		value, _ := node.Attr("href")
		if value == "" {
			value, _ = node.Attr("content")
		}
		if value == "" {
			value = node.Text()
		}
		lower := strings.ToLower(value)
		switch {
		case strings.Contains(lower, "outofstock") || strings.Contains(lower, "out_of_stock"):
			return models.AvailabilityOutOfStock
		case strings.Contains(lower, "instock") || strings.Contains(lower, "in_stock"):
			return models.AvailabilityInStock
		}
	}

	// Fallback: look at the add-to-cart button state
	button := doc.Find(`button[name="add"], .add-to-cart, #add-to-cart`).First()
	if button.Length() > 0 {
		if _, disabled := button.Attr("disabled"); disabled {
			return models.AvailabilityOutOfStock
		}
		return models.AvailabilityInStock
	}

	return models.AvailabilityUnknown
}

func extractImages(doc *goquery.Document) []string {
	var images []string
	seen := make(map[string]bool)

	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] {
			return
		}
		// Protocol-relative URLs are common in og:image tags
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		seen[src] = true
		images = append(images, src)
	}

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find(`img[itemprop="image"], .product-image img, .product-gallery img`).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
	})

	return images
}

// extractDescription pulls the richest description block available and
// normalizes it to markdown; falls back to the meta description.
func extractDescription(doc *goquery.Document, pageURL string) string {
	converter := md.NewConverter(pageURL, true, nil)

	for _, sel := range descriptionSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		html, err := node.Html()
		if err != nil || strings.TrimSpace(html) == "" {
			continue
		}
		markdown, err := converter.ConvertString(html)
		if err == nil && strings.TrimSpace(markdown) != "" {
			return strings.TrimSpace(markdown)
		}
		// Conversion produced nothing useful, fall back to plain text
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}

	if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return strings.TrimSpace(content)
	}

	return ""
}

func detectPlatform(doc *goquery.Document, html string) string {
	if generator, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok {
		lower := strings.ToLower(generator)
		switch {
		case strings.Contains(lower, "woocommerce"):
			return "woocommerce"
		case strings.Contains(lower, "shopify"):
			return "shopify"
		case strings.Contains(lower, "prestashop"):
			return "prestashop"
		case strings.Contains(lower, "magento"):
			return "magento"
		}
	}

	lower := strings.ToLower(html)
	switch {
	case strings.Contains(lower, "cdn.shopify.com"):
		return "shopify"
	case strings.Contains(lower, "woocommerce"):
		return "woocommerce"
	case strings.Contains(lower, "bigcommerce"):
		return "bigcommerce"
	}

	return ""
}

// parsePrice normalizes price strings like "$1,299.00", "1.299,00" or
// "24,90" into a float.
func parsePrice(raw string) (float64, bool) {
	cleaned := priceCleanRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma > lastDot && len(cleaned)-lastComma-1 != 3:
		// Comma is the decimal separator: "1.299,00" or "24,90"
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	default:
		// Dot is the decimal separator (or no decimals): strip thousands commas
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}
