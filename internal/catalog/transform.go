package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// inferCategory maps free-text product type and tags onto the closed
// category set. Lossy by design: no keyword match falls back to shirts.
func inferCategory(productType string, tags []string) Category {
	s := strings.ToLower(productType + " " + strings.Join(tags, " "))

	switch {
	case strings.Contains(s, "coat") || strings.Contains(s, "jacket"):
		return CategoryCoats
	case strings.Contains(s, "blazer"):
		return CategoryBlazers
	case strings.Contains(s, "sweatshirt") || strings.Contains(s, "sweater"):
		return CategorySweatshirts
	case strings.Contains(s, "shirt"):
		return CategoryShirts
	case strings.Contains(s, "accessor") || strings.Contains(s, "bag") || strings.Contains(s, "watch"):
		return CategoryAccessories
	}
	return CategoryShirts
}

func variantSize(v gqlVariant) string {
	for _, opt := range v.SelectedOptions {
		if strings.EqualFold(opt.Name, "size") {
			return opt.Value
		}
	}
	return ""
}

func variantColor(v gqlVariant) string {
	for _, opt := range v.SelectedOptions {
		name := strings.ToLower(opt.Name)
		if name == "color" || name == "colour" {
			return opt.Value
		}
	}
	return ""
}

// extractSizesAndColors collects the option values carried by variants.
// Sizes are filtered to the closed XS..XXL set and returned in that
// order. Products whose variants carry no options get a display default.
func extractSizesAndColors(variants []gqlVariant) (sizes, colors []string) {
	sizeSet := map[string]bool{}
	colorSet := map[string]bool{}
	var colorOrder []string

	for _, v := range variants {
		if s := variantSize(v); s != "" {
			sizeSet[s] = true
		}
		if c := variantColor(v); c != "" && !colorSet[c] {
			colorSet[c] = true
			colorOrder = append(colorOrder, c)
		}
	}

	for _, s := range sizeOrder {
		if sizeSet[s] {
			sizes = append(sizes, s)
		}
	}
	if len(sizes) == 0 {
		sizes = []string{"XS", "S", "M", "L", "XL"}
	}
	colors = colorOrder
	if len(colors) == 0 {
		colors = []string{"Black", "White", "Gray"}
	}
	return sizes, colors
}

func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// derivePricing computes (regular price, sale price) from variant
// pricing. Sale price is the minimum variant price when the minimum
// compare-at price exceeds it; the compare-at price then becomes the
// regular price. Heuristic over multi-variant products.
func derivePricing(variants []gqlVariant) (price float64, salePrice *float64) {
	if len(variants) == 0 {
		return 0, nil
	}

	minPrice := parseAmount(variants[0].Price.Amount)
	for _, v := range variants[1:] {
		if p := parseAmount(v.Price.Amount); p < minPrice {
			minPrice = p
		}
	}

	var minCompare float64
	haveCompare := false
	for _, v := range variants {
		if v.CompareAtPrice == nil {
			continue
		}
		c := parseAmount(v.CompareAtPrice.Amount)
		if !haveCompare || c < minCompare {
			minCompare = c
			haveCompare = true
		}
	}

	if haveCompare && minCompare > minPrice {
		sale := minPrice
		return minCompare, &sale
	}
	return minPrice, nil
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func isFeatured(tags []string) bool {
	for _, t := range tags {
		lt := strings.ToLower(t)
		if lt == "featured" || lt == "feature" {
			return true
		}
	}
	return false
}

// transformProduct flattens one upstream product into the storefront
// view. Filtering callers must not mutate the result.
func transformProduct(sp gqlProduct) Product {
	variants := make([]gqlVariant, 0, len(sp.Variants.Edges))
	for _, e := range sp.Variants.Edges {
		variants = append(variants, e.Node)
	}

	sizes, colors := extractSizesAndColors(variants)
	price, salePrice := derivePricing(variants)

	images := make([]string, 0, len(sp.Images.Edges))
	for _, e := range sp.Images.Edges {
		images = append(images, e.Node.URL)
	}

	stock := 0
	mapped := make([]Variant, 0, len(variants))
	for _, v := range variants {
		if v.AvailableForSale {
			stock++
		}
		mapped = append(mapped, Variant{
			ID:        v.ID,
			Size:      variantSize(v),
			Color:     variantColor(v),
			Price:     parseAmount(v.Price.Amount),
			Available: v.AvailableForSale,
		})
	}

	desc := sp.Description
	if desc == "" {
		desc = htmlTag.ReplaceAllString(sp.DescriptionHTML, "")
	}

	return Product{
		ID:          sp.ID,
		Name:        sp.Title,
		Slug:        sp.Handle,
		Description: desc,
		Price:       price,
		SalePrice:   salePrice,
		Category:    inferCategory(sp.ProductType, sp.Tags),
		Images:      images,
		Sizes:       sizes,
		Colors:      colors,
		Stock:       stock,
		Featured:    isFeatured(sp.Tags),
		Variants:    mapped,
	}
}
