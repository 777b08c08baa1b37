package catalog

// Category is the storefront's closed product taxonomy. Upstream
// product types and tags are free text; classification is best-effort.
type Category string

const (
	CategoryCoats       Category = "coats"
	CategoryBlazers     Category = "blazers"
	CategoryShirts      Category = "shirts"
	CategorySweatshirts Category = "sweatshirts"
	CategoryAccessories Category = "accessories"
)

// Categories lists every valid category, in display order.
var Categories = []Category{CategoryCoats, CategoryBlazers, CategoryShirts, CategorySweatshirts, CategoryAccessories}

func (c Category) Valid() bool {
	switch c {
	case CategoryCoats, CategoryBlazers, CategoryShirts, CategorySweatshirts, CategoryAccessories:
		return true
	}
	return false
}

// sizeOrder is the closed size set in display order.
var sizeOrder = []string{"XS", "S", "M", "L", "XL", "XXL"}

type Variant struct {
	ID        string  `json:"id"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

// Product is the flattened storefront view of an upstream product.
// It is read-only: fetched per request, never mutated locally.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	SalePrice   *float64  `json:"salePrice,omitempty"`
	Category    Category  `json:"category"`
	Images      []string  `json:"images"`
	Sizes       []string  `json:"sizes"`
	Colors      []string  `json:"colors"`
	Stock       int       `json:"stock"`
	Featured    bool      `json:"featured"`
	Variants    []Variant `json:"variants"`
}
