package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// StatsSource is the analytics read surface; satisfied by
// *analytics.Service.
type StatsSource interface {
	TopAdds(ctx context.Context, n int64) ([]redis.Z, error)
	CheckoutStarts(ctx context.Context, day time.Time) (int64, error)
}

type StatsHandler struct {
	Stats StatsSource
}

func (h *StatsHandler) Register(r *chi.Mux) {
	r.Get("/api/analytics/popular", h.popular)
	r.Get("/api/analytics/checkout-starts", h.checkoutStarts)
}

func (h *StatsHandler) popular(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := int64(10)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		limit = n
	}

	top, err := h.Stats.TopAdds(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read tallies")
		return
	}

	type entry struct {
		ProductID string  `json:"productId"`
		Count     float64 `json:"count"`
	}
	out := make([]entry, 0, len(top))
	for _, z := range top {
		id, _ := z.Member.(string)
		out = append(out, entry{ProductID: id, Count: z.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StatsHandler) checkoutStarts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	day := time.Now().UTC()
	if v := r.URL.Query().Get("day"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be yyyy-mm-dd")
			return
		}
		day = parsed
	}

	n, err := h.Stats.CheckoutStarts(ctx, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read tallies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day":   day.Format("2006-01-02"),
		"count": n,
	})
}
