package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/redisx"
)

const (
	listPageSize   = 250
	searchPageSize = 20
)

// StorefrontClient is the slice of the commerce API client the adapter
// needs; satisfied by *shopify.Client.
type StorefrontClient interface {
	Do(ctx context.Context, query string, variables map[string]any, out any) error
}

// Filter narrows List results. Filters compose as logical AND and are
// applied client-side after the transform.
type Filter struct {
	Category     Category
	FeaturedOnly bool
}

// Service reshapes the platform's variant/option product model into the
// flattened storefront view.
type Service struct {
	Client StorefrontClient
	Redis  *redis.Client // optional; short-lived listing cache
	Log    *zap.Logger
}

func NewService(client StorefrontClient, rdb *redis.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Client: client, Redis: rdb, Log: log}
}

// List fetches up to one page of products, transforms them, then
// applies the filters. Upstream data is never mutated.
func (s *Service) List(ctx context.Context, f Filter) ([]Product, error) {
	products, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.FeaturedOnly && !p.Featured {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) listAll(ctx context.Context) ([]Product, error) {
	if cached, ok := s.cachedList(ctx); ok {
		return cached, nil
	}

	var resp listProductsResponse
	if err := s.Client.Do(ctx, queryListProducts, map[string]any{"first": listPageSize}, &resp); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]Product, 0, len(resp.Products.Edges))
	for _, e := range resp.Products.Edges {
		products = append(products, transformProduct(e.Node))
	}

	s.cacheList(ctx, products)
	return products, nil
}

func (s *Service) cachedList(ctx context.Context) ([]Product, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, redisx.KeyCatalogList).Bytes()
	if err != nil {
		return nil, false
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		s.Log.Debug("catalog cache decode failed", zap.Error(err))
		return nil, false
	}
	return products, true
}

func (s *Service) cacheList(ctx context.Context, products []Product) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, redisx.KeyCatalogList, raw, redisx.TTLCatalog).Err(); err != nil {
		s.Log.Debug("catalog cache write failed", zap.Error(err))
	}
}

// GetBySlug returns nil, nil when the handle does not resolve.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	if cached, ok := s.cachedProduct(ctx, slug); ok {
		return cached, nil
	}

	var resp productResponse
	if err := s.Client.Do(ctx, queryProductByHandle, map[string]any{"handle": slug}, &resp); err != nil {
		return nil, fmt.Errorf("product by handle %q: %w", slug, err)
	}
	if resp.Product == nil {
		return nil, nil
	}
	p := transformProduct(*resp.Product)
	s.cacheProduct(ctx, slug, p)
	return &p, nil
}

// cachedProduct serves a single handle from the short-lived cache.
// Misses and decode failures fall through to upstream; absence is
// never cached.
func (s *Service) cachedProduct(ctx context.Context, slug string) (*Product, bool) {
	if s.Redis == nil {
		return nil, false
	}
	key := fmt.Sprintf(redisx.KeyCatalogProduct, slug)
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		s.Log.Debug("catalog cache decode failed", zap.String("slug", slug), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func (s *Service) cacheProduct(ctx context.Context, slug string, p Product) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyCatalogProduct, slug)
	if err := s.Redis.Set(ctx, key, raw, redisx.TTLCatalog).Err(); err != nil {
		s.Log.Debug("catalog cache write failed", zap.String("slug", slug), zap.Error(err))
	}
}

// GetByID accepts either a bare numeric id or a full gid:// identifier.
// Returns nil, nil when the product does not resolve.
func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	if !strings.Contains(id, "gid://") {
		id = "gid://shopify/Product/" + id
	}

	var resp productResponse
	if err := s.Client.Do(ctx, queryProductByID, map[string]any{"id": id}, &resp); err != nil {
		return nil, fmt.Errorf("product by id %q: %w", id, err)
	}
	if resp.Product == nil {
		return nil, nil
	}
	p := transformProduct(*resp.Product)
	return &p, nil
}

// Search delegates a wildcard title/description query upstream; no
// local ranking is applied.
func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	q := fmt.Sprintf("title:*%s* OR description:*%s*", term, term)

	var resp listProductsResponse
	if err := s.Client.Do(ctx, querySearchProducts, map[string]any{"query": q, "first": searchPageSize}, &resp); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	products := make([]Product, 0, len(resp.Products.Edges))
	for _, e := range resp.Products.Edges {
		products = append(products, transformProduct(e.Node))
	}
	return products, nil
}
