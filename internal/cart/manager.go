// Package cart owns the mapping between the cookie-held cart
// identifier and the commerce platform's cart object. The platform is
// the source of truth; every view returned here is re-derived from its
// current state.
package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/catalog"
)

var (
	ErrProductNotFound = errors.New("cart: product not found")
	ErrVariantNotFound = errors.New("cart: variant not found")
	ErrCartNotFound    = errors.New("cart: cart not found")
	ErrItemNotFound    = errors.New("cart: cart item not found")
)

// UpstreamError preserves a mutation-level rejection from the platform
// (an invalid variant, an expired cart) with its message intact.
type UpstreamError struct {
	Op      string
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("cart: %s rejected upstream: %s", e.Op, e.Message)
}

func userErr(op string, errs []gqlUserError, fallback string) error {
	msg := fallback
	if len(errs) > 0 {
		msg = errs[0].Message
	}
	return &UpstreamError{Op: op, Message: msg}
}

// FallbackPolicy controls variant resolution when no variant matches
// the requested size and color exactly.
type FallbackPolicy int

const (
	// FallbackLenient substitutes the first purchasable variant, then
	// the first variant unconditionally. The added item may not match
	// the requested size/color.
	FallbackLenient FallbackPolicy = iota
	// FallbackStrict fails with ErrVariantNotFound on any mismatch.
	FallbackStrict
)

// StorefrontClient is the slice of the commerce API client the manager
// needs; satisfied by *shopify.Client.
type StorefrontClient interface {
	Do(ctx context.Context, query string, variables map[string]any, out any) error
}

// ProductSource resolves product ids to the flattened catalog view;
// satisfied by *catalog.Service.
type ProductSource interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

type Item struct {
	LineID    string  `json:"lineId"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Total     float64 `json:"total"`
}

type Cart struct {
	ID            string  `json:"id"`
	CheckoutURL   string  `json:"checkoutUrl"`
	TotalQuantity int     `json:"totalQuantity"`
	Subtotal      float64 `json:"subtotal"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
	Items         []Item  `json:"items"`

	// Created reports that this operation minted the cart (no cookie,
	// or the cookie's cart no longer resolved upstream). Not part of
	// the API payload.
	Created bool `json:"-"`
}

type Manager struct {
	Client   StorefrontClient
	Products ProductSource
	Cookies  *CookieStore
	Policy   FallbackPolicy
	Log      *zap.Logger
}

func NewManager(client StorefrontClient, products ProductSource, cookies *CookieStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{Client: client, Products: products, Cookies: cookies, Log: log}
}

// Get returns the current cart, or nil when no cookie is present. A
// cookie whose cart no longer resolves upstream is replaced with a
// fresh cart and the cookie is overwritten.
func (m *Manager) Get(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Cart, error) {
	cartID := m.Cookies.Read(r)
	if cartID == "" {
		return nil, nil
	}

	sc, err := m.fetch(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		m.Log.Info("cart id no longer resolvable, creating a new cart", zap.String("cart_id", cartID))
		newID, err := m.create(ctx)
		if err != nil {
			return nil, err
		}
		m.Cookies.Write(w, newID)
		sc, err = m.fetch(ctx, newID)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			return nil, ErrCartNotFound
		}
		c := transformCart(sc)
		c.Created = true
		return &c, nil
	}
	c := transformCart(sc)
	return &c, nil
}

// Add resolves a purchasable variant for (size, color) and adds it to
// the cart, creating the cart first when needed.
func (m *Manager) Add(ctx context.Context, w http.ResponseWriter, r *http.Request, productID string, quantity int, size, color string) (*Cart, error) {
	if quantity < 1 {
		quantity = 1
	}

	product, err := m.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	variantID, err := m.resolveVariant(product, size, color)
	if err != nil {
		return nil, err
	}

	cartID, created, err := m.getOrCreateID(ctx, w, r)
	if err != nil {
		return nil, err
	}

	lines := []map[string]any{{
		"merchandiseId": variantID,
		"quantity":      quantity,
		"attributes": []map[string]string{
			{"key": "Size", "value": size},
			{"key": "Color", "value": color},
		},
	}}

	var resp linesAddResponse
	if err := m.Client.Do(ctx, mutationLinesAdd, map[string]any{"cartId": cartID, "lines": lines}, &resp); err != nil {
		return nil, err
	}
	if resp.CartLinesAdd.Cart == nil {
		return nil, userErr("add", resp.CartLinesAdd.UserErrors, "failed to add to cart")
	}

	c := transformCart(resp.CartLinesAdd.Cart)
	c.Created = created
	return &c, nil
}

// Update changes the quantity of the unique line matching (productID,
// size, color); absent size/color are normalized to "". Quantity zero
// or less removes the line.
func (m *Manager) Update(ctx context.Context, w http.ResponseWriter, r *http.Request, productID, size, color string, quantity int) (*Cart, error) {
	cartID := m.Cookies.Read(r)
	if cartID == "" {
		return nil, ErrCartNotFound
	}

	current, err := m.Get(ctx, w, r)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrCartNotFound
	}

	line := findLine(current.Items, productID, size, color)
	if line == nil {
		m.Log.Debug("no cart line matches",
			zap.String("product_id", productID), zap.String("size", size), zap.String("color", color))
		return nil, ErrItemNotFound
	}

	if quantity <= 0 {
		return m.removeLines(ctx, current.ID, []string{line.LineID})
	}

	var resp linesUpdateResponse
	vars := map[string]any{
		"cartId": current.ID,
		"lines":  []map[string]any{{"id": line.LineID, "quantity": quantity}},
	}
	if err := m.Client.Do(ctx, mutationLinesUpdate, vars, &resp); err != nil {
		return nil, err
	}
	if resp.CartLinesUpdate.Cart == nil {
		return nil, userErr("update", resp.CartLinesUpdate.UserErrors, "failed to update cart")
	}

	c := transformCart(resp.CartLinesUpdate.Cart)
	return &c, nil
}

// Remove deletes the matching line entirely. Equivalent to an update
// to quantity zero.
func (m *Manager) Remove(ctx context.Context, w http.ResponseWriter, r *http.Request, productID, size, color string) (*Cart, error) {
	return m.Update(ctx, w, r, productID, size, color, 0)
}

// Clear removes every line from the current cart. A missing cart is
// already clear.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Cart, error) {
	current, err := m.Get(ctx, w, r)
	if err != nil {
		return nil, err
	}
	if current == nil || len(current.Items) == 0 {
		return current, nil
	}

	lineIDs := make([]string, 0, len(current.Items))
	for _, it := range current.Items {
		lineIDs = append(lineIDs, it.LineID)
	}
	return m.removeLines(ctx, current.ID, lineIDs)
}

// CheckoutURL returns the platform's hosted checkout URL, or "" when
// no cart exists.
func (m *Manager) CheckoutURL(ctx context.Context, r *http.Request) (string, error) {
	cartID := m.Cookies.Read(r)
	if cartID == "" {
		return "", nil
	}
	sc, err := m.fetch(ctx, cartID)
	if err != nil {
		return "", err
	}
	if sc == nil {
		return "", nil
	}
	return sc.CheckoutURL, nil
}

func (m *Manager) removeLines(ctx context.Context, cartID string, lineIDs []string) (*Cart, error) {
	var resp linesRemoveResponse
	vars := map[string]any{"cartId": cartID, "lineIds": lineIDs}
	if err := m.Client.Do(ctx, mutationLinesRemove, vars, &resp); err != nil {
		return nil, err
	}
	if resp.CartLinesRemove.Cart == nil {
		return nil, userErr("remove", resp.CartLinesRemove.UserErrors, "failed to remove from cart")
	}
	c := transformCart(resp.CartLinesRemove.Cart)
	return &c, nil
}

// getOrCreateID reuses the cookie cart when it still resolves upstream,
// otherwise creates a fresh cart and overwrites the cookie. The second
// return reports whether a cart was minted.
func (m *Manager) getOrCreateID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool, error) {
	cartID := m.Cookies.Read(r)
	if cartID != "" {
		sc, err := m.fetch(ctx, cartID)
		if err != nil {
			return "", false, err
		}
		if sc != nil {
			return cartID, false, nil
		}
	}

	newID, err := m.create(ctx)
	if err != nil {
		return "", false, err
	}
	m.Cookies.Write(w, newID)
	return newID, true, nil
}

func (m *Manager) create(ctx context.Context) (string, error) {
	var resp cartCreateResponse
	if err := m.Client.Do(ctx, mutationCartCreate, nil, &resp); err != nil {
		return "", err
	}
	if resp.CartCreate.Cart == nil {
		return "", userErr("create", resp.CartCreate.UserErrors, "failed to create cart")
	}
	return resp.CartCreate.Cart.ID, nil
}

func (m *Manager) fetch(ctx context.Context, cartID string) (*gqlCart, error) {
	var resp cartGetResponse
	if err := m.Client.Do(ctx, queryCart, map[string]any{"id": cartID}, &resp); err != nil {
		return nil, err
	}
	return resp.Cart, nil
}

// resolveVariant walks the fallback chain: exact purchasable match on
// (size, color), then the first purchasable variant, then the first
// variant unconditionally. Strict policy stops after the exact match.
func (m *Manager) resolveVariant(p *catalog.Product, size, color string) (string, error) {
	if len(p.Variants) == 0 {
		return "", ErrVariantNotFound
	}

	for _, v := range p.Variants {
		matchSize := size == "" || v.Size == size
		matchColor := color == "" || v.Color == color
		if matchSize && matchColor && v.Available {
			return v.ID, nil
		}
	}

	if m.Policy == FallbackStrict {
		return "", ErrVariantNotFound
	}

	for _, v := range p.Variants {
		if v.Available {
			m.Log.Warn("no exact variant match, substituting purchasable variant",
				zap.String("product_id", p.ID), zap.String("size", size), zap.String("color", color))
			return v.ID, nil
		}
	}
	m.Log.Warn("no purchasable variant, substituting first variant",
		zap.String("product_id", p.ID))
	return p.Variants[0].ID, nil
}

func findLine(items []Item, productID, size, color string) *Item {
	for i := range items {
		it := &items[i]
		if it.ProductID == productID && it.Size == strings.TrimSpace(size) && it.Color == strings.TrimSpace(color) {
			return it
		}
	}
	return nil
}

func transformCart(sc *gqlCart) Cart {
	items := make([]Item, 0, len(sc.Lines.Edges))
	for _, e := range sc.Lines.Edges {
		line := e.Node

		var size, color string
		for _, opt := range line.Merchandise.SelectedOptions {
			name := strings.ToLower(opt.Name)
			switch {
			case name == "size":
				size = opt.Value
			case name == "color" || name == "colour":
				color = opt.Value
			}
		}

		items = append(items, Item{
			LineID:    line.ID,
			ProductID: line.Merchandise.Product.ID,
			Name:      line.Merchandise.Product.Title,
			Quantity:  line.Quantity,
			Size:      size,
			Color:     color,
			Total:     parseAmount(line.Cost.TotalAmount.Amount),
		})
	}

	return Cart{
		ID:            sc.ID,
		CheckoutURL:   sc.CheckoutURL,
		TotalQuantity: sc.TotalQuantity,
		Subtotal:      parseAmount(sc.Cost.SubtotalAmount.Amount),
		Total:         parseAmount(sc.Cost.TotalAmount.Amount),
		Currency:      sc.Cost.TotalAmount.CurrencyCode,
		Items:         items,
	}
}

func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
