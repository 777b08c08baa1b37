package events

import (
	"encoding/json"
	"time"
)

const (
	EventCartCreated     = "CartCreated"
	EventItemAdded       = "ItemAdded"
	EventItemUpdated     = "ItemUpdated"
	EventItemRemoved     = "ItemRemoved"
	EventCheckoutStarted = "CheckoutStarted"
	EventProfileSynced   = "ProfileSynced"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually the cart id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload types per event ----

type CartCreatedPayload struct {
	CartID string `json:"cart_id"`
}

type ItemAddedPayload struct {
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type ItemUpdatedPayload struct {
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"` // zero means removed
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type CheckoutStartedPayload struct {
	CartID        string  `json:"cart_id"`
	TotalQuantity int     `json:"total_quantity"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
}

type ProfileSyncedPayload struct {
	ProviderUserID string `json:"provider_user_id"`
	Created        bool   `json:"created"`
	AuthProvider   string `json:"auth_provider"`
}
