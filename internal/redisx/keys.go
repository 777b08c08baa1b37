package redisx

import "time"

const (
	// Unfiltered catalog listing: catalog:list:{version} -> JSON []Product
	KeyCatalogList = "catalog:list:v1"

	// Single product by handle: catalog:product:{handle} -> JSON Product
	KeyCatalogProduct = "catalog:product:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Per-product add-to-cart tallies (sorted set, member = product id).
	KeyCartAdds = "analytics:cart:adds"

	// Checkout starts per day: analytics:checkout:{yyyy-mm-dd} -> counter
	KeyCheckoutStarts = "analytics:checkout:%s"
)

var (
	// Catalog reads are fetched fresh per request with short-lived caching;
	// the TTL only smooths bursts, it is never a source of truth.
	TTLCatalog = time.Minute

	TTLDedup = 48 * time.Hour
)
