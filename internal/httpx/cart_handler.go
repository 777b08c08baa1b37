package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/veltaire/storefront/internal/cart"
	"github.com/veltaire/storefront/internal/events"
	"github.com/veltaire/storefront/internal/kafka"
)

// Publisher is the async event sink; satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// CartService is the cart surface the handler serves; satisfied by
// *cart.Manager.
type CartService interface {
	Get(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Cart, error)
	Add(ctx context.Context, w http.ResponseWriter, r *http.Request, productID string, quantity int, size, color string) (*cart.Cart, error)
	Update(ctx context.Context, w http.ResponseWriter, r *http.Request, productID, size, color string, quantity int) (*cart.Cart, error)
	Remove(ctx context.Context, w http.ResponseWriter, r *http.Request, productID, size, color string) (*cart.Cart, error)
	Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Cart, error)
	CheckoutURL(ctx context.Context, r *http.Request) (string, error)
}

type CartHandler struct {
	Cart     CartService
	Producer Publisher // optional activity stream
	Service  string
	Log      *zap.Logger
}

type cartItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/api/cart", h.getCart)
	r.Post("/api/cart/items", h.addItem)
	r.Put("/api/cart/items", h.updateItem)
	r.Delete("/api/cart/items", h.removeItem)
	r.Post("/api/cart/clear", h.clearCart)
	r.Get("/api/cart/checkout-url", h.checkoutURL)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Cart.Get(ctx, w, r)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	if c != nil && c.Created {
		h.publish(r, events.EventCartCreated, c.ID, events.CartCreatedPayload{CartID: c.ID})
	}
	writeJSON(w, http.StatusOK, c) // null body when no cart exists
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Cart.Add(ctx, w, r, req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	if c.Created {
		h.publish(r, events.EventCartCreated, c.ID, events.CartCreatedPayload{CartID: c.ID})
	}
	h.publish(r, events.EventItemAdded, c.ID, events.ItemAddedPayload{
		CartID:    c.ID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Cart.Update(ctx, w, r, req.ProductID, req.Size, req.Color, req.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	h.publish(r, events.EventItemUpdated, c.ID, events.ItemUpdatedPayload{
		CartID:    c.ID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Cart.Remove(ctx, w, r, req.ProductID, req.Size, req.Color)
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	h.publish(r, events.EventItemRemoved, c.ID, events.ItemUpdatedPayload{
		CartID:    c.ID,
		ProductID: req.ProductID,
		Quantity:  0,
		Size:      req.Size,
		Color:     req.Color,
	})
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.Cart.Clear(ctx, w, r)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) checkoutURL(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	url, err := h.Cart.CheckoutURL(ctx, r)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	if url == "" {
		writeJSON(w, http.StatusOK, map[string]any{"checkoutUrl": nil})
		return
	}

	if c, err := h.Cart.Get(ctx, w, r); err == nil && c != nil {
		h.publish(r, events.EventCheckoutStarted, c.ID, events.CheckoutStartedPayload{
			CartID:        c.ID,
			TotalQuantity: c.TotalQuantity,
			Total:         c.Total,
			Currency:      c.Currency,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkoutUrl": url})
}

// writeCartError maps manager errors onto the API surface: absence is
// 404, upstream rejection is 502 with the platform message preserved.
func (h *CartHandler) writeCartError(w http.ResponseWriter, err error) {
	var upstream *cart.UpstreamError
	switch {
	case errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, cart.ErrVariantNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, upstream.Message)
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// publish is fire-and-forget; a missing producer or full inbox must
// never block the request.
func (h *CartHandler) publish(r *http.Request, eventType, cartID string, payload any) {
	if h.Producer == nil {
		return
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: cartID,
	}
	env.Payload = kafka.MustMarshal(payload)
	h.Producer.Publish(events.PartitionKey(cartID), kafka.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
